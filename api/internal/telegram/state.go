package telegram

import "sync"

// mode is the field the next plain text message of a chat fills.
type mode string

const (
	modeNone          mode = ""
	modeGoal          mode = "await_goal"
	modeVariable      mode = "await_variable"
	modeData          mode = "await_data"
	modeScale         mode = "await_scale"
	modeJustification mode = "await_justification"
	modeImprovement   mode = "await_improvement"
	modeReflection    mode = "await_reflection"
	modeQuestion      mode = "await_question"
)

var chatMode sync.Map // chatID -> mode

func setMode(chatID int64, m mode) {
	if m == modeNone {
		clearMode(chatID)
		return
	}
	chatMode.Store(chatID, m)
}

func getMode(chatID int64) mode {
	if v, ok := chatMode.Load(chatID); ok {
		if m, _ := v.(mode); m != "" {
			return m
		}
	}
	return modeNone
}

func clearMode(chatID int64) { chatMode.Delete(chatID) }
