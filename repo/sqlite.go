// Package repo is the persistence gateway: users, daily reports and
// combined supervisor reports in SQLite, report payloads stored as
// JSON blobs in text columns.
package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"reportbot/model"
)

// User is one row of the users table.
type User struct {
	ID         int64
	Role       model.Role
	Name       string
	Supervisor string
	Verified   bool
}

// Store wraps the SQLite database. All report payloads go through the
// schema so product lists land under the configured key.
type Store struct {
	db     *sql.DB
	schema model.Schema
}

// New opens (creating if needed) the database at path and runs the
// migration.
func New(path string, schema model.Schema) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("repo: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, schema: schema}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("repo: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id    INTEGER PRIMARY KEY,
			role       TEXT NOT NULL,
			name       TEXT NOT NULL DEFAULT '',
			supervisor TEXT NOT NULL DEFAULT '',
			verified   INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS reports (
			user_id     INTEGER NOT NULL,
			report_date TEXT NOT NULL,
			payload     TEXT NOT NULL,
			PRIMARY KEY (user_id, report_date)
		);

		CREATE TABLE IF NOT EXISTS combined (
			supervisor  TEXT NOT NULL,
			report_date TEXT NOT NULL,
			payload     TEXT NOT NULL,
			PRIMARY KEY (supervisor, report_date)
		);
	`)
	return err
}

// ─── Users ───────────────────────────────────────────────────────────

// UpsertUser inserts or updates the user's role, name and supervisor
// link. The verified flag survives the update.
func (s *Store) UpsertUser(ctx context.Context, id int64, role model.Role, name, supervisor string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, role, name, supervisor) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			role = excluded.role,
			name = excluded.name,
			supervisor = excluded.supervisor
	`, id, role.String(), name, supervisor)
	if err != nil {
		return fmt.Errorf("repo: upsert user %d: %w", id, err)
	}
	return nil
}

// User returns the stored user, or model.ErrNotFound.
func (s *Store) User(ctx context.Context, id int64) (*User, error) {
	var (
		u        User
		roleName string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, role, name, supervisor, verified FROM users WHERE user_id = ?`, id,
	).Scan(&u.ID, &roleName, &u.Name, &u.Supervisor, &u.Verified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repo: read user %d: %w", id, err)
	}
	role, err := model.ParseRole(roleName)
	if err != nil {
		return nil, fmt.Errorf("repo: user %d: %w", id, err)
	}
	u.Role = role
	return &u, nil
}

// SetVerified marks the user as having passed the password gate.
func (s *Store) SetVerified(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, role, verified) VALUES (?, ?, 1)
		ON CONFLICT(user_id) DO UPDATE SET verified = 1
	`, id, model.RoleUnknown.String())
	if err != nil {
		return fmt.Errorf("repo: verify user %d: %w", id, err)
	}
	return nil
}

// IsVerified reports whether the user already passed the password
// gate. Unknown users are not verified.
func (s *Store) IsVerified(ctx context.Context, id int64) (bool, error) {
	var verified bool
	err := s.db.QueryRowContext(ctx,
		`SELECT verified FROM users WHERE user_id = ?`, id,
	).Scan(&verified)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("repo: read verified %d: %w", id, err)
	}
	return verified, nil
}

// SupervisorID resolves a supervisor roster name to the chat ID of the
// user who claimed it, or model.ErrNotFound.
func (s *Store) SupervisorID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM users WHERE role = ? AND name = ?`, model.RoleSupervisor.String(), name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("repo: resolve supervisor %q: %w", name, err)
	}
	return id, nil
}

// Employees lists the reporters linked to the given supervisor.
func (s *Store) Employees(ctx context.Context, supervisor string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, name FROM users WHERE role = ? AND supervisor = ? ORDER BY name`,
		model.RoleReporter.String(), supervisor,
	)
	if err != nil {
		return nil, fmt.Errorf("repo: list employees of %q: %w", supervisor, err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u := User{Role: model.RoleReporter, Supervisor: supervisor}
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("repo: scan employee: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ─── Reports ─────────────────────────────────────────────────────────

// SaveReport upserts the user's answer set for the given ISO date. At
// most one report per user per day; a later save overwrites.
func (s *Store) SaveReport(ctx context.Context, userID int64, date string, set model.AnswerSet) error {
	payload, err := json.Marshal(set.Flatten(s.schema))
	if err != nil {
		return fmt.Errorf("repo: encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (user_id, report_date, payload) VALUES (?, ?, ?)
		ON CONFLICT(user_id, report_date) DO UPDATE SET payload = excluded.payload
	`, userID, date, string(payload))
	if err != nil {
		return fmt.Errorf("repo: save report %d/%s: %w", userID, date, err)
	}
	return nil
}

// Report loads one user's answer set for a date, or model.ErrNotFound.
func (s *Store) Report(ctx context.Context, userID int64, date string) (model.AnswerSet, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM reports WHERE user_id = ? AND report_date = ?`, userID, date,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnswerSet{}, model.ErrNotFound
	}
	if err != nil {
		return model.AnswerSet{}, fmt.Errorf("repo: read report %d/%s: %w", userID, date, err)
	}
	return s.decode(payload)
}

// EmployeeReport pairs a reporter with their decoded answer set.
type EmployeeReport struct {
	UserID int64
	Name   string
	Set    model.AnswerSet
}

// ReportsOnDate lists the reports submitted on date by reporters
// linked to the given supervisor. Undecodable payloads are skipped so
// one bad record never blocks the team view.
func (s *Store) ReportsOnDate(ctx context.Context, date, supervisor string) ([]EmployeeReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.user_id, u.name, r.payload
		FROM reports r
		JOIN users u ON u.user_id = r.user_id
		WHERE r.report_date = ? AND u.supervisor = ?
		ORDER BY u.name
	`, date, supervisor)
	if err != nil {
		return nil, fmt.Errorf("repo: list reports %s/%q: %w", date, supervisor, err)
	}
	defer rows.Close()

	var out []EmployeeReport
	for rows.Next() {
		var (
			er      EmployeeReport
			payload string
		)
		if err := rows.Scan(&er.UserID, &er.Name, &payload); err != nil {
			return nil, fmt.Errorf("repo: scan report: %w", err)
		}
		set, err := s.decode(payload)
		if err != nil {
			continue
		}
		er.Set = set
		out = append(out, er)
	}
	return out, rows.Err()
}

// ─── Combined reports ────────────────────────────────────────────────

// SaveCombined upserts the combined team report for (supervisor, date).
// Re-running aggregation for the same day overwrites the prior record.
func (s *Store) SaveCombined(ctx context.Context, supervisor, date string, set model.AnswerSet) error {
	payload, err := json.Marshal(set.Flatten(s.schema))
	if err != nil {
		return fmt.Errorf("repo: encode combined: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO combined (supervisor, report_date, payload) VALUES (?, ?, ?)
		ON CONFLICT(supervisor, report_date) DO UPDATE SET payload = excluded.payload
	`, supervisor, date, string(payload))
	if err != nil {
		return fmt.Errorf("repo: save combined %q/%s: %w", supervisor, date, err)
	}
	return nil
}

// Combined loads the stored combined report, or model.ErrNotFound.
func (s *Store) Combined(ctx context.Context, supervisor, date string) (model.AnswerSet, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM combined WHERE supervisor = ? AND report_date = ?`, supervisor, date,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AnswerSet{}, model.ErrNotFound
	}
	if err != nil {
		return model.AnswerSet{}, fmt.Errorf("repo: read combined %q/%s: %w", supervisor, date, err)
	}
	return s.decode(payload)
}

func (s *Store) decode(payload string) (model.AnswerSet, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return model.AnswerSet{}, fmt.Errorf("repo: decode payload: %w", err)
	}
	return model.AnswerSetFromRaw(s.schema, raw), nil
}
