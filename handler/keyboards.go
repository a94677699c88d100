package handler

import (
	"fmt"

	"github.com/go-telegram/bot/models"
)

// Callback tokens. Indexed tokens carry their argument after the prefix.
const (
	cbRoleReporter   = "role_reporter"
	cbRoleSupervisor = "role_supervisor"
	cbRoleManual     = "role_manual"
	cbChangeInfo     = "change_info"
	cbMenu           = "menu"
	cbEditReport     = "edit_report"
	cbSendReport     = "send_report"
	cbRetrySave      = "retry_save"
	cbSupStatus      = "sup_status"
	cbSupDetailed    = "sup_detailed"
	cbSupCombine     = "sup_combine"
	cbSupSend        = "sup_send"

	cbPickSupPrefix = "pick_sup_" // + roster index
	cbProductPrefix = "product_"  // + option
	cbDatePrefix    = "pick_date_" // + supervisor view name
)

func button(text, data string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{{Text: text, CallbackData: data}}
}

func roleMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		button("Отчёт сотрудника", cbRoleReporter),
		button("Меню руководителя", cbRoleSupervisor),
		button("Ручное заполнение", cbRoleManual),
		button("Сменить ФИ/руководителя", cbChangeInfo),
	}}
}

func supervisorMenuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		button("Отчёты на сегодня", cbSupStatus),
		button("Детальные отчёты", cbSupDetailed),
		button("Объединить отчёты", cbSupCombine),
		button("Отправить руководству", cbSupSend),
		button("Вернуться в меню", cbMenu),
	}}
}

func rosterKeyboard(supervisors []string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(supervisors))
	for i, name := range supervisors {
		rows = append(rows, button(name, fmt.Sprintf("%s%d", cbPickSupPrefix, i)))
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func productKeyboard(options []string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(options))
	for _, opt := range options {
		rows = append(rows, button(opt, cbProductPrefix+opt))
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func dateKeyboard(view string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		button("Выбрать другую дату", cbDatePrefix+view),
	}}
}

func reportActionsKeyboard(canSend bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		button("Редактировать", cbEditReport),
	}
	if canSend {
		rows = append(rows, button("Отправить руководителю", cbSendReport))
	}
	rows = append(rows, button("Сменить ФИ/руководителя", cbChangeInfo))
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func retrySaveKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		button("Повторить сохранение", cbRetrySave),
	}}
}

func combinedKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		button("Выбрать другую дату", cbDatePrefix+viewCombine),
		button("Отправить руководству", cbSupSend),
	}}
}
