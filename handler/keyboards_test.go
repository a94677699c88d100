package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterKeyboard_CallbackCarriesIndex(t *testing.T) {
	kb := rosterKeyboard([]string{"Чепик Ольга", "Ионов Александр"})
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, "Чепик Ольга", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "pick_sup_0", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "pick_sup_1", kb.InlineKeyboard[1][0].CallbackData)
}

func TestProductKeyboard_OneRowPerOption(t *testing.T) {
	kb := productKeyboard([]string{"ТЭ", "ЗП", "БК"})
	require.Len(t, kb.InlineKeyboard, 3)
	for i, opt := range []string{"ТЭ", "ЗП", "БК"} {
		assert.Equal(t, opt, kb.InlineKeyboard[i][0].Text)
		assert.Equal(t, cbProductPrefix+opt, kb.InlineKeyboard[i][0].CallbackData)
	}
}

func TestReportActionsKeyboard_SendOnlyWhenLinked(t *testing.T) {
	withSend := reportActionsKeyboard(true)
	require.Len(t, withSend.InlineKeyboard, 3)
	assert.Equal(t, cbSendReport, withSend.InlineKeyboard[1][0].CallbackData)

	withoutSend := reportActionsKeyboard(false)
	require.Len(t, withoutSend.InlineKeyboard, 2)
	for _, row := range withoutSend.InlineKeyboard {
		assert.NotEqual(t, cbSendReport, row[0].CallbackData)
	}
}
