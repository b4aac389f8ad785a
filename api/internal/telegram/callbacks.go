package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
)

func (r *Router) handleCallback(ctx context.Context, cb tgbotapi.CallbackQuery) {
	r.wait(ctx)
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	sess, c := r.open(cid, cb.From)

	switch data := cb.Data; {
	case data == cbHint:
		r.apply(ctx, cid, coach.RequestHint{})
	case data == cbValidate:
		r.validate(ctx, cid)
	case data == cbEdit:
		r.editStep(ctx, cid, sess, c)
	case data == cbQuestion:
		r.prompt(ctx, cid, c, modeQuestion)
	case data == cbReset:
		r.removeKeyboard(ctx, cid, msgID)
		r.reset(ctx, cid)
	case data == cbReport:
		r.sendReport(ctx, cid)
	case strings.HasPrefix(data, cbVarPrefix):
		r.onVarType(ctx, cid, msgID, strings.TrimPrefix(data, cbVarPrefix))
	case strings.HasPrefix(data, cbChkPrefix):
		r.onChecklistToggle(ctx, cid, msgID, strings.TrimPrefix(data, cbChkPrefix))
	default:
		r.logger().Debug("unknown callback", zap.String("data", data))
	}
}

func (r *Router) onVarType(ctx context.Context, cid int64, msgID int, vt string) {
	sess, err := r.Sessions.Get(sessionID(cid))
	if err != nil {
		return
	}
	st := sess.State
	next, ok := r.saveField(ctx, cid, coach.SetFraming{Goal: st.Goal, Variable: st.Variable, VarType: vt})
	if !ok {
		return
	}
	c := r.Sessions.Coach(next.Locale)
	r.editKeyboard(ctx, cid, msgID, makeVarTypeKeyboard(c, next.State.VarType))
}

func (r *Router) onChecklistToggle(ctx context.Context, cid int64, msgID int, key string) {
	sess, err := r.Sessions.Get(sessionID(cid))
	if err != nil {
		return
	}
	st := sess.State
	item := coach.ChecklistItem(key)
	next, ok := r.saveField(ctx, cid, coach.SetChecklist{
		Items:       map[string]bool{key: !st.Checklist[item]},
		Improvement: st.Improvement,
	})
	if !ok {
		return
	}
	c := r.Sessions.Coach(next.Locale)
	r.editKeyboard(ctx, cid, msgID, makeChecklistKeyboard(c, next.State.Checklist))
}

func (r *Router) editKeyboard(ctx context.Context, cid int64, msgID int, kb tgbotapi.InlineKeyboardMarkup) {
	r.wait(ctx)
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, msgID, kb)
	if _, err := r.Bot.Send(edit); err != nil {
		r.logger().Debug("edit keyboard", zap.Int64("chat", cid), zap.Error(err))
	}
}

func (r *Router) removeKeyboard(ctx context.Context, cid int64, msgID int) {
	r.editKeyboard(ctx, cid, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
}
