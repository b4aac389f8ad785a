package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"barchart-coach/api/internal/coach"
)

// callback payloads
const (
	cbHint      = "hint"
	cbValidate  = "validate"
	cbEdit      = "edit"
	cbQuestion  = "question"
	cbReset     = "reset"
	cbReport    = "report"
	cbVarPrefix = "vt:"
	cbChkPrefix = "chk:"
)

func button(c *coach.Coach, key, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(c.T(key), data)
}

func actionRows(c *coach.Coach, step coach.Step) [][]tgbotapi.InlineKeyboardButton {
	if step == coach.StepReport {
		return [][]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.report", cbReport)),
			tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.hint", cbHint), button(c, "bot.button.edit", cbEdit)),
			tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.reset", cbReset)),
		}
	}
	return [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.hint", cbHint), button(c, "bot.button.validate", cbValidate)),
		tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.edit", cbEdit), button(c, "bot.button.question", cbQuestion)),
		tgbotapi.NewInlineKeyboardRow(button(c, "bot.button.reset", cbReset)),
	}
}

// Hint / validate / edit / ask / reset for the current step.
func makeActionsKeyboard(c *coach.Coach, step coach.Step) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(actionRows(c, step)...)
}

func makeVarTypeKeyboard(c *coach.Coach, current coach.VarType) tgbotapi.InlineKeyboardMarkup {
	row := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, vt := range []coach.VarType{coach.VarQualitative, coach.VarQuantitativeDiscrete} {
		label := c.T("bot.button." + string(vt))
		if vt == current {
			label = "● " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cbVarPrefix+string(vt)))
	}
	rows := append([][]tgbotapi.InlineKeyboardButton{row}, actionRows(c, coach.StepFraming)...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// One toggle per rubric item, then the step actions.
func makeChecklistKeyboard(c *coach.Coach, checked map[coach.ChecklistItem]bool) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(coach.ChecklistItems)+3)
	for _, item := range coach.ChecklistItems {
		box := "⬜ "
		if checked[item] {
			box = "✅ "
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(box+c.ChecklistLabel(item), cbChkPrefix+string(item)),
		))
	}
	rows = append(rows, actionRows(c, coach.StepChecklist)...)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
