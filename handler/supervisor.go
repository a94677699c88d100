package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog/log"

	"reportbot/model"
	"reportbot/report"
)

// Supervisor views reachable from the supervisor menu and the
// pick-a-date flow.
const (
	viewStatus   = "status"
	viewDetailed = "detailed"
	viewCombine  = "combine"
)

func format(schema model.Schema, set model.AnswerSet) string {
	return report.Format(schema, set)
}

// supervisorName resolves the caller to their roster name; the views
// only cover the caller's own team.
func (h *ReportBotHandler) supervisorName(ctx context.Context, b *bot.Bot, userID, chatID int64) (string, bool) {
	user, err := h.store.User(ctx, userID)
	if err != nil || user.Role != model.RoleSupervisor || user.Name == "" {
		h.sendKb(ctx, b, chatID, "Сначала выберите ваше ФИ из списка:", rosterKeyboard(h.cfg.Supervisors))
		return "", false
	}
	return user.Name, true
}

func (h *ReportBotHandler) supervisorView(ctx context.Context, b *bot.Bot, userID, chatID int64, view, date string) {
	name, ok := h.supervisorName(ctx, b, userID, chatID)
	if !ok {
		return
	}
	switch view {
	case viewStatus:
		h.showStatus(ctx, b, chatID, name, date)
	case viewDetailed:
		h.showDetailed(ctx, b, chatID, name, date)
	case viewCombine:
		h.showCombined(ctx, b, chatID, name, date)
	default:
		log.Warn().Str("view", view).Msg("unknown supervisor view")
	}
}

// showStatus lists the team with a check mark per submitted report.
func (h *ReportBotHandler) showStatus(ctx context.Context, b *bot.Bot, chatID int64, supervisor, date string) {
	employees, err := h.store.Employees(ctx, supervisor)
	if err != nil {
		log.Warn().Err(err).Str("supervisor", supervisor).Msg("list employees failed")
		h.send(ctx, b, chatID, "Не удалось получить список сотрудников.")
		return
	}
	reports, err := h.store.ReportsOnDate(ctx, date, supervisor)
	if err != nil {
		log.Warn().Err(err).Str("supervisor", supervisor).Msg("list reports failed")
		h.send(ctx, b, chatID, "Не удалось получить отчёты.")
		return
	}

	reported := make(map[int64]bool, len(reports))
	for _, r := range reports {
		reported[r.UserID] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Отчёты на %s:\n", date)
	for _, e := range employees {
		mark := "—"
		if reported[e.ID] {
			mark = "✅"
		}
		name := e.Name
		if name == "" {
			name = strconv.FormatInt(e.ID, 10)
		}
		fmt.Fprintf(&sb, "Сотрудник %s: %s\n", name, mark)
	}
	if len(employees) == 0 {
		sb.WriteString("К вам пока не привязан ни один сотрудник.\n")
	}
	h.sendKb(ctx, b, chatID, sb.String(), dateKeyboard(viewStatus))
}

// showDetailed renders every submitted report in full.
func (h *ReportBotHandler) showDetailed(ctx context.Context, b *bot.Bot, chatID int64, supervisor, date string) {
	reports, err := h.store.ReportsOnDate(ctx, date, supervisor)
	if err != nil {
		log.Warn().Err(err).Str("supervisor", supervisor).Msg("list reports failed")
		h.send(ctx, b, chatID, "Не удалось получить отчёты.")
		return
	}
	if len(reports) == 0 {
		h.sendKb(ctx, b, chatID, fmt.Sprintf("Нет отчётов на %s.", date), dateKeyboard(viewDetailed))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Детальные отчёты на %s:\n", date)
	for _, r := range reports {
		fmt.Fprintf(&sb, "\nСотрудник %s:\n%s\n", r.Name, format(h.schema, r.Set))
	}
	h.sendKb(ctx, b, chatID, sb.String(), dateKeyboard(viewDetailed))
}

// showCombined folds the team's reports into one, persists the result
// and shows it with the operational defects block appended.
func (h *ReportBotHandler) showCombined(ctx context.Context, b *bot.Bot, chatID int64, supervisor, date string) {
	combined, n, ok := h.combineForDate(ctx, b, chatID, supervisor, date)
	if !ok || n == 0 {
		return
	}

	text := format(h.schema, combined)
	if h.cfg.DefectsBlock != "" {
		text += "\n\n" + h.cfg.DefectsBlock
	}
	h.sendKb(ctx, b, chatID, text, combinedKeyboard())
}

// sendCombinedUpward sends the combined report to the configured
// management chats.
func (h *ReportBotHandler) sendCombinedUpward(ctx context.Context, b *bot.Bot, userID, chatID int64, date string) {
	supervisor, ok := h.supervisorName(ctx, b, userID, chatID)
	if !ok {
		return
	}
	combined, n, ok := h.combineForDate(ctx, b, chatID, supervisor, date)
	if !ok || n == 0 {
		return
	}

	text := format(h.schema, combined)
	if h.cfg.DefectsBlock != "" {
		text += "\n\n" + h.cfg.DefectsBlock
	}
	text = fmt.Sprintf("Объединённый отчёт от %s на %s:\n%s", supervisor, date, text)

	failures := 0
	for _, recipient := range h.cfg.ManagementChatIDs {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: recipient, Text: text}); err != nil {
			failures++
			log.Warn().Err(err).Int64("recipient", recipient).Msg("send combined failed")
		}
	}
	if failures == len(h.cfg.ManagementChatIDs) && failures > 0 {
		h.send(ctx, b, chatID, "Не удалось отправить отчёт руководству.")
		return
	}
	h.send(ctx, b, chatID, "Отчёт отправлен руководству.")
}

// combineForDate loads the team's reports, folds them and upserts the
// combined record. A failed upsert degrades to a warning; the combined
// set is still returned for display.
func (h *ReportBotHandler) combineForDate(ctx context.Context, b *bot.Bot, chatID int64, supervisor, date string) (model.AnswerSet, int, bool) {
	reports, err := h.store.ReportsOnDate(ctx, date, supervisor)
	if err != nil {
		log.Warn().Err(err).Str("supervisor", supervisor).Msg("list reports failed")
		h.send(ctx, b, chatID, "Не удалось получить отчёты.")
		return model.AnswerSet{}, 0, false
	}
	if len(reports) == 0 {
		h.sendKb(ctx, b, chatID, fmt.Sprintf("Нет отчётов на %s.", date), dateKeyboard(viewCombine))
		return model.AnswerSet{}, 0, true
	}

	sets := make([]model.AnswerSet, len(reports))
	for i, r := range reports {
		sets[i] = r.Set
	}
	combined := report.Combine(h.schema, sets)

	if err := h.store.SaveCombined(ctx, supervisor, date, combined); err != nil {
		log.Warn().Err(err).Str("supervisor", supervisor).Msg("save combined failed")
		h.send(ctx, b, chatID, "⚠️ Объединённый отчёт не удалось сохранить, показываем без сохранения.")
	}
	return combined, len(reports), true
}
