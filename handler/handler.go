// Package handler wires the Telegram transport to the form engine, the
// report assembler and the persistence gateway.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"reportbot/config"
	"reportbot/form"
	"reportbot/model"
	"reportbot/repo"
)

const dateLayout = "2006-01-02"

// ReportBotHandler reacts to inbound messages and button presses. One
// instance serves all users; per-user state lives in the session store.
type ReportBotHandler struct {
	cfg      *config.Config
	schema   model.Schema
	engine   *form.Engine
	sessions form.SessionStore
	store    *repo.Store
}

// New builds the handler from its collaborators.
func New(cfg *config.Config, store *repo.Store, sessions form.SessionStore) *ReportBotHandler {
	schema := cfg.Schema()
	return &ReportBotHandler{
		cfg:      cfg,
		schema:   schema,
		engine:   form.NewEngine(schema),
		sessions: sessions,
		store:    store,
	}
}

// Handle is the bot's default handler for every update.
func (h *ReportBotHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, b, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, b, update.Message)
	}
}

func today() string {
	return time.Now().Format(dateLayout)
}

func (h *ReportBotHandler) send(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	h.sendKb(ctx, b, chatID, text, nil)
}

func (h *ReportBotHandler) sendKb(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := b.SendMessage(ctx, params); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("send message failed")
	}
}

// ─── Messages ────────────────────────────────────────────────────────

func (h *ReportBotHandler) handleMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if text == "/start" {
		h.start(ctx, b, userID, chatID)
		return
	}

	sess, ok := h.sessions.Get(userID)
	if !ok {
		h.send(ctx, b, chatID, "Сессия не запущена. Начните заново: /start")
		return
	}

	if sess.AwaitingPassword {
		h.checkPassword(ctx, b, sess, chatID, text)
		return
	}

	if text == "/menu" || strings.EqualFold(text, "вернуться в меню") {
		h.sessions.Delete(userID)
		h.sendKb(ctx, b, chatID, "Выберите роль:", roleMenuKeyboard())
		return
	}

	switch {
	case sess.EnteringName:
		sess.PendingName = text
		sess.EnteringName = false
		sess.ChoosingSupervisor = true
		h.sendKb(ctx, b, chatID, "Выберите вашего руководителя:", rosterKeyboard(h.cfg.Supervisors))
	case sess.ChoosingSupervisor:
		h.send(ctx, b, chatID, "Пожалуйста, выберите из списка кнопок.")
	case sess.DateSelect != "":
		h.handleDateInput(ctx, b, sess, chatID, text)
	case sess.InSubflow():
		h.send(ctx, b, chatID, "Пожалуйста, выберите продукт кнопкой выше.")
	case sess.Role == model.RoleSupervisor:
		// Supervisors never type answers; everything goes through the menu.
		h.sendKb(ctx, b, chatID, "Используйте кнопки меню руководителя.", supervisorMenuKeyboard())
	default:
		h.handleAnswer(ctx, b, sess, chatID, text)
	}
}

func (h *ReportBotHandler) start(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	verified, err := h.store.IsVerified(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("verified lookup failed")
	}
	if !verified {
		sess := model.NewSession(userID, model.RoleUnknown)
		sess.AwaitingPassword = true
		h.sessions.Put(sess)
		h.send(ctx, b, chatID, "Введите пароль доступа:")
		return
	}
	h.sessions.Delete(userID)
	h.sendKb(ctx, b, chatID, "Выберите роль:", roleMenuKeyboard())
}

func (h *ReportBotHandler) checkPassword(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64, text string) {
	if text != h.cfg.Password {
		h.send(ctx, b, chatID, "Неверный пароль. Попробуйте ещё раз:")
		return
	}
	if err := h.store.SetVerified(ctx, sess.UserID); err != nil {
		log.Warn().Err(err).Int64("user", sess.UserID).Msg("set verified failed")
	}
	h.sessions.Delete(sess.UserID)
	h.sendKb(ctx, b, chatID, "Доступ разрешён. Выберите роль:", roleMenuKeyboard())
}

// handleAnswer feeds one typed answer into the form engine.
func (h *ReportBotHandler) handleAnswer(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64, text string) {
	if h.engine.IsComplete(sess) {
		h.send(ctx, b, chatID, "Опрос завершён. Вернитесь в меню: /menu")
		return
	}

	if err := h.engine.SubmitAnswer(sess, text); err != nil {
		if errors.Is(err, model.ErrInvalidInput) {
			h.send(ctx, b, chatID, "Пожалуйста, введите число.")
			h.askCurrent(ctx, b, sess, chatID)
			return
		}
		log.Error().Err(err).Int64("user", sess.UserID).Msg("submit answer failed")
		return
	}

	if sess.InSubflow() {
		n := sess.Subflow.Remaining
		h.sendKb(ctx, b, chatID,
			fmt.Sprintf("Вы указали %d. Выберите оформленный продукт (1/%d):", n, n),
			productKeyboard(h.schema.Options))
		return
	}

	h.advance(ctx, b, sess, chatID)
}

// advance asks the next question or finalizes a completed session.
func (h *ReportBotHandler) advance(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64) {
	if h.engine.IsComplete(sess) {
		h.finishReport(ctx, b, sess, chatID)
		return
	}
	h.askCurrent(ctx, b, sess, chatID)
}

func (h *ReportBotHandler) askCurrent(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64) {
	if prompt, ok := h.engine.Prompt(sess); ok {
		h.send(ctx, b, chatID, prompt)
	}
}

func (h *ReportBotHandler) startFilling(ctx context.Context, b *bot.Bot, userID, chatID int64, role model.Role) {
	sess := model.NewSession(userID, role)
	h.sessions.Put(sess)
	h.send(ctx, b, chatID, "Начинаем заполнение отчёта.")
	h.askCurrent(ctx, b, sess, chatID)
}

// finishReport finalizes the answers, persists them for non-manual
// roles and shows the rendered report with follow-up actions. A failed
// save keeps the session alive so the user can retry it.
func (h *ReportBotHandler) finishReport(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64) {
	final := h.schema.Finalize(sess.Answers)
	sess.Answers = final

	saved := true
	if sess.Role != model.RoleManual {
		if err := h.store.SaveReport(ctx, sess.UserID, today(), final); err != nil {
			saved = false
			log.Warn().Err(err).Int64("user", sess.UserID).Msg("save report failed")
		}
	}

	h.send(ctx, b, chatID, "Итоговый отчёт:\n"+format(h.schema, final))

	if !saved {
		h.sendKb(ctx, b, chatID,
			"⚠️ Не удалось сохранить отчёт. Ответы не потеряны — попробуйте ещё раз.",
			retrySaveKeyboard())
		return
	}

	if sess.Role == model.RoleManual {
		// Nothing persisted; keep the session so edit still works.
		h.sendKb(ctx, b, chatID, "Действия:", reportActionsKeyboard(false))
		return
	}

	h.sessions.Delete(sess.UserID)
	h.sendKb(ctx, b, chatID, "Действия:", reportActionsKeyboard(sess.Role == model.RoleReporter))
}

// handleDateInput consumes a typed date for a pending supervisor view.
func (h *ReportBotHandler) handleDateInput(ctx context.Context, b *bot.Bot, sess *model.Session, chatID int64, text string) {
	date, err := time.Parse(dateLayout, text)
	if err != nil {
		h.send(ctx, b, chatID, "Неверный формат даты. Попробуйте снова (YYYY-MM-DD).")
		return
	}
	view := sess.DateSelect
	sess.DateSelect = ""
	h.supervisorView(ctx, b, sess.UserID, chatID, view, date.Format(dateLayout))
}

// ─── Callbacks ───────────────────────────────────────────────────────

func (h *ReportBotHandler) handleCallback(ctx context.Context, b *bot.Bot, q *models.CallbackQuery) {
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		log.Warn().Err(err).Msg("answer callback failed")
	}

	userID := q.From.ID
	chatID := userID
	if q.Message.Message != nil {
		chatID = q.Message.Message.Chat.ID
	}
	data := q.Data

	switch {
	case data == cbRoleReporter:
		h.selectReporter(ctx, b, userID, chatID)
	case data == cbRoleSupervisor:
		sess := model.NewSession(userID, model.RoleSupervisor)
		sess.ChoosingSupervisor = true
		h.sessions.Put(sess)
		h.sendKb(ctx, b, chatID, "Выберите ваше ФИ из списка:", rosterKeyboard(h.cfg.Supervisors))
	case data == cbRoleManual:
		h.startFilling(ctx, b, userID, chatID, model.RoleManual)
	case data == cbChangeInfo:
		h.changeInfo(ctx, b, userID, chatID)
	case data == cbMenu:
		h.sessions.Delete(userID)
		h.sendKb(ctx, b, chatID, "Выберите роль:", roleMenuKeyboard())
	case strings.HasPrefix(data, cbPickSupPrefix):
		h.pickSupervisor(ctx, b, userID, chatID, strings.TrimPrefix(data, cbPickSupPrefix))
	case strings.HasPrefix(data, cbProductPrefix):
		h.pickProduct(ctx, b, userID, chatID, strings.TrimPrefix(data, cbProductPrefix))
	case data == cbEditReport:
		h.editReport(ctx, b, userID, chatID)
	case data == cbSendReport:
		h.sendReportToSupervisor(ctx, b, userID, chatID)
	case data == cbRetrySave:
		h.retrySave(ctx, b, userID, chatID)
	case data == cbSupStatus:
		h.supervisorView(ctx, b, userID, chatID, viewStatus, today())
	case data == cbSupDetailed:
		h.supervisorView(ctx, b, userID, chatID, viewDetailed, today())
	case data == cbSupCombine:
		h.supervisorView(ctx, b, userID, chatID, viewCombine, today())
	case data == cbSupSend:
		h.sendCombinedUpward(ctx, b, userID, chatID, today())
	case strings.HasPrefix(data, cbDatePrefix):
		h.askDate(ctx, b, userID, chatID, strings.TrimPrefix(data, cbDatePrefix))
	default:
		log.Warn().Str("data", data).Msg("unknown callback")
	}
}

func (h *ReportBotHandler) selectReporter(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	user, err := h.store.User(ctx, userID)
	if err == nil && user.Role == model.RoleReporter && user.Name != "" && user.Supervisor != "" {
		h.startFilling(ctx, b, userID, chatID, model.RoleReporter)
		return
	}
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		log.Warn().Err(err).Int64("user", userID).Msg("user lookup failed")
	}
	sess := model.NewSession(userID, model.RoleReporter)
	sess.EnteringName = true
	h.sessions.Put(sess)
	h.send(ctx, b, chatID, "Введите ваше имя (для фиксации в системе):")
}

func (h *ReportBotHandler) changeInfo(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	role := model.RoleReporter
	if user, err := h.store.User(ctx, userID); err == nil && user.Role != model.RoleUnknown {
		role = user.Role
	}
	if err := h.store.UpsertUser(ctx, userID, role, "", ""); err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("reset user failed")
	}

	sess := model.NewSession(userID, role)
	h.sessions.Put(sess)
	switch role {
	case model.RoleSupervisor:
		sess.ChoosingSupervisor = true
		h.sendKb(ctx, b, chatID, "Выберите ваше ФИ из списка:", rosterKeyboard(h.cfg.Supervisors))
	case model.RoleReporter, model.RoleManual, model.RoleUnknown:
		sess.EnteringName = true
		h.send(ctx, b, chatID, "Данные сброшены. Введите новое имя:")
	}
}

func (h *ReportBotHandler) pickSupervisor(ctx context.Context, b *bot.Bot, userID, chatID int64, arg string) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 || index >= len(h.cfg.Supervisors) {
		h.send(ctx, b, chatID, "Ошибка выбора. Попробуйте снова.")
		return
	}
	selected := h.cfg.Supervisors[index]

	sess, ok := h.sessions.Get(userID)
	if !ok {
		h.send(ctx, b, chatID, "Сессия не запущена. Начните заново: /start")
		return
	}

	if sess.Role == model.RoleSupervisor {
		if err := h.store.UpsertUser(ctx, userID, model.RoleSupervisor, selected, ""); err != nil {
			log.Warn().Err(err).Int64("user", userID).Msg("save supervisor failed")
		}
		sess.ChoosingSupervisor = false
		h.sendKb(ctx, b, chatID, fmt.Sprintf("Выбрано ФИ: %s.", selected), supervisorMenuKeyboard())
		return
	}

	if sess.PendingName == "" {
		h.send(ctx, b, chatID, "Имя не задано. Повторите ввод: /start")
		return
	}
	if err := h.store.UpsertUser(ctx, userID, model.RoleReporter, sess.PendingName, selected); err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("save reporter failed")
	}
	sess.PendingName = ""
	sess.ChoosingSupervisor = false
	h.send(ctx, b, chatID, fmt.Sprintf("Привязка к %s выполнена. Начинаем отчёт.", selected))
	h.askCurrent(ctx, b, sess, chatID)
}

func (h *ReportBotHandler) pickProduct(ctx context.Context, b *bot.Bot, userID, chatID int64, option string) {
	sess, ok := h.sessions.Get(userID)
	if !ok || !sess.InSubflow() {
		h.send(ctx, b, chatID, "Выбор продукта сейчас не ожидается.")
		return
	}

	if err := h.engine.SubmitProductChoice(sess, option); err != nil {
		log.Warn().Err(err).Int64("user", userID).Str("option", option).Msg("product choice rejected")
		h.sendKb(ctx, b, chatID, "Выберите продукт из списка кнопок.", productKeyboard(h.schema.Options))
		return
	}

	if sess.InSubflow() {
		h.sendKb(ctx, b, chatID,
			fmt.Sprintf("Вы выбрали %s. Осталось указать ещё %d.", option, sess.Subflow.Remaining),
			productKeyboard(h.schema.Options))
		return
	}

	h.send(ctx, b, chatID, "Все продукты указаны ✅")
	h.advance(ctx, b, sess, chatID)
}

// editReport reloads today's stored report and re-asks every question
// from the first one, previous values shown as hints.
func (h *ReportBotHandler) editReport(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	// Manual sessions never hit the store; edit what is in memory.
	if sess, ok := h.sessions.Get(userID); ok && sess.Role == model.RoleManual {
		h.engine.StartEditing(sess, sess.Answers)
		h.send(ctx, b, chatID, "Начинаем редактирование.")
		h.askCurrent(ctx, b, sess, chatID)
		return
	}

	role := model.RoleReporter
	if user, err := h.store.User(ctx, userID); err == nil && user.Role != model.RoleUnknown {
		role = user.Role
	}

	previous, err := h.store.Report(ctx, userID, today())
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			log.Warn().Err(err).Int64("user", userID).Msg("load report failed")
		}
		previous = model.NewAnswerSet()
	}

	sess := model.NewSession(userID, role)
	h.engine.StartEditing(sess, previous)
	h.sessions.Put(sess)
	h.send(ctx, b, chatID, "Начинаем редактирование.")
	h.askCurrent(ctx, b, sess, chatID)
}

func (h *ReportBotHandler) sendReportToSupervisor(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	date := today()
	set, err := h.store.Report(ctx, userID, date)
	if err != nil {
		h.send(ctx, b, chatID, "Отчёт не найден. Сначала заполните его.")
		return
	}
	user, err := h.store.User(ctx, userID)
	if err != nil || user.Supervisor == "" {
		h.send(ctx, b, chatID, "Руководитель не привязан. Обновите данные через меню.")
		return
	}
	supID, err := h.store.SupervisorID(ctx, user.Supervisor)
	if err != nil {
		h.send(ctx, b, chatID, fmt.Sprintf("Руководитель %s ещё не зарегистрирован в системе.", user.Supervisor))
		return
	}

	name := user.Name
	if name == "" {
		name = strconv.FormatInt(userID, 10)
	}
	text := fmt.Sprintf("Отчёт от сотрудника %s на %s:\n%s", name, date, format(h.schema, set))
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: supID, Text: text}); err != nil {
		log.Warn().Err(err).Int64("supervisor", supID).Msg("forward report failed")
		h.send(ctx, b, chatID, "Ошибка отправки отчёта.")
		return
	}
	h.send(ctx, b, chatID, "Отчёт отправлен руководителю.")
}

// retrySave re-attempts the persistence of a finalized session whose
// first save failed.
func (h *ReportBotHandler) retrySave(ctx context.Context, b *bot.Bot, userID, chatID int64) {
	sess, ok := h.sessions.Get(userID)
	if !ok || !h.engine.IsComplete(sess) {
		h.send(ctx, b, chatID, "Нет отчёта для сохранения.")
		return
	}
	if err := h.store.SaveReport(ctx, userID, today(), sess.Answers); err != nil {
		log.Warn().Err(err).Int64("user", userID).Msg("retry save failed")
		h.sendKb(ctx, b, chatID, "⚠️ Снова не удалось сохранить. Попробуйте позже.", retrySaveKeyboard())
		return
	}
	role := sess.Role
	h.sessions.Delete(userID)
	h.sendKb(ctx, b, chatID, "Отчёт сохранён ✅", reportActionsKeyboard(role == model.RoleReporter))
}

func (h *ReportBotHandler) askDate(ctx context.Context, b *bot.Bot, userID, chatID int64, view string) {
	sess, ok := h.sessions.Get(userID)
	if !ok {
		sess = model.NewSession(userID, model.RoleSupervisor)
		h.sessions.Put(sess)
	}
	sess.DateSelect = view
	h.send(ctx, b, chatID, "Введите дату (YYYY-MM-DD):")
}
