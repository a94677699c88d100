package model

// Subflow is the counted product selection detour opened by the tally
// question. Remaining counts down to zero as selections come in.
type Subflow struct {
	Remaining int
	Collected []string
}

// Session is one user's in-progress questionnaire state. It lives in
// memory only and is dropped on completion or explicit reset.
type Session struct {
	UserID  int64
	Role    Role
	Step    int
	Answers AnswerSet
	Editing bool
	Subflow *Subflow

	// Onboarding and menu flags driven by the transport handler.
	AwaitingPassword   bool
	EnteringName       bool
	ChoosingSupervisor bool
	PendingName        string

	// DateSelect holds the supervisor view ("status", "detailed",
	// "combine") waiting for a typed-in date, empty otherwise.
	DateSelect string
}

// NewSession returns a fresh session for the given user and role.
func NewSession(userID int64, role Role) *Session {
	return &Session{
		UserID:  userID,
		Role:    role,
		Answers: NewAnswerSet(),
	}
}

// InSubflow reports whether a product selection is pending.
func (s *Session) InSubflow() bool {
	return s.Subflow != nil && s.Subflow.Remaining > 0
}
