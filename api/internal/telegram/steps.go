package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/session"
)

// showStep prints the step header and asks for the first missing field,
// or shows the step's buttons when everything is filled in.
func (r *Router) showStep(ctx context.Context, cid int64, sess session.Session, c *coach.Coach) {
	st := sess.State
	r.send(ctx, cid, c.T("step.progress", strconv.Itoa(int(st.Step)))+"\n"+c.StepTitle(st.Step))

	switch st.Step {
	case coach.StepFraming:
		switch {
		case !filled(st.Goal):
			r.prompt(ctx, cid, c, modeGoal)
		case !filled(st.Variable):
			r.prompt(ctx, cid, c, modeVariable)
		default:
			clearMode(cid)
			r.sendWithMarkup(ctx, cid, c.T("bot.prompt.var_type"), makeVarTypeKeyboard(c, st.VarType))
		}

	case coach.StepData:
		if len(st.Categories) > 0 {
			r.send(ctx, cid, dataSummary(c, st))
		}
		r.prompt(ctx, cid, c, modeData)

	case coach.StepScale:
		r.send(ctx, cid, scaleSummary(c, st.Analyze().Stats))
		switch {
		case st.Scale == nil:
			r.prompt(ctx, cid, c, modeScale)
		case !filled(st.ScaleJustification):
			r.prompt(ctx, cid, c, modeJustification)
		default:
			clearMode(cid)
			r.sendWithMarkup(ctx, cid, c.T("action.saved"), makeActionsKeyboard(c, st.Step))
		}

	case coach.StepChecklist:
		r.sendWithMarkup(ctx, cid, c.T("bot.prompt.checklist"), makeChecklistKeyboard(c, st.Checklist))
		if !filled(st.Improvement) {
			r.prompt(ctx, cid, c, modeImprovement)
		} else {
			clearMode(cid)
		}

	case coach.StepReport:
		if !filled(st.Reflection) {
			r.prompt(ctx, cid, c, modeReflection)
			return
		}
		clearMode(cid)
		r.sendWithMarkup(ctx, cid, c.T("action.saved"), makeActionsKeyboard(c, st.Step))
	}
}

var promptKeys = map[mode]string{
	modeGoal:          "bot.prompt.goal",
	modeVariable:      "bot.prompt.variable",
	modeData:          "bot.prompt.data",
	modeScale:         "bot.prompt.scale",
	modeJustification: "bot.prompt.justification",
	modeImprovement:   "bot.prompt.improvement",
	modeReflection:    "bot.prompt.reflection",
	modeQuestion:      "bot.prompt.question",
}

func (r *Router) prompt(ctx context.Context, cid int64, c *coach.Coach, m mode) {
	setMode(cid, m)
	r.send(ctx, cid, c.T(promptKeys[m]))
}

// editStep re-asks the first field of the current step.
func (r *Router) editStep(ctx context.Context, cid int64, sess session.Session, c *coach.Coach) {
	first := map[coach.Step]mode{
		coach.StepFraming:   modeGoal,
		coach.StepData:      modeData,
		coach.StepScale:     modeScale,
		coach.StepChecklist: modeImprovement,
		coach.StepReport:    modeReflection,
	}
	if m, ok := first[sess.State.Step]; ok {
		r.prompt(ctx, cid, c, m)
	}
}

// handleText routes a plain message to the field the chat is waiting for;
// without one it is a free question to the assistant.
func (r *Router) handleText(ctx context.Context, cid int64, u *tgbotapi.User, text string) {
	sess, c := r.open(cid, u)
	st := sess.State

	switch getMode(cid) {
	case modeGoal:
		r.fillField(ctx, cid, c, coach.SetFraming{Goal: text, Variable: st.Variable, VarType: string(st.VarType)}, modeVariable)

	case modeVariable:
		if next, ok := r.saveField(ctx, cid, coach.SetFraming{Goal: st.Goal, Variable: text, VarType: string(st.VarType)}); ok {
			clearMode(cid)
			r.sendWithMarkup(ctx, cid, c.T("bot.prompt.var_type"), makeVarTypeKeyboard(c, next.State.VarType))
		}

	case modeData:
		rows, line, err := parseDataLines(text)
		if err != nil {
			r.send(ctx, cid, c.T("bot.data.bad_line", strconv.Itoa(line)))
			return
		}
		cats, counts := coach.SplitRows(rows)
		next, out, err := r.Sessions.Apply(sessionID(cid), coach.SetData{Categories: cats, Counts: counts})
		if err != nil {
			r.logger().Warn("apply data", zap.Int64("chat", cid), zap.Error(err))
			return
		}
		msg := out.Message
		if out.Kind == coach.OutcomeSaved {
			msg = dataSummary(c, next.State) + "\n\n" + msg
		}
		r.sendWithMarkup(ctx, cid, msg, makeActionsKeyboard(c, next.State.Step))

	case modeScale:
		step, top, err := parseScale(text)
		if err != nil {
			r.send(ctx, cid, c.T("bot.scale.bad_input"))
			return
		}
		r.fillField(ctx, cid, c, coach.SetScale{Step: step, Top: top, Justification: st.ScaleJustification}, modeJustification)

	case modeJustification:
		if st.Scale == nil {
			r.prompt(ctx, cid, c, modeScale)
			return
		}
		r.fillField(ctx, cid, c, coach.SetScale{Step: st.Scale.Step, Top: st.Scale.Top, Justification: text}, modeNone)

	case modeImprovement:
		r.fillField(ctx, cid, c, coach.SetChecklist{Improvement: text}, modeNone)

	case modeReflection:
		r.fillField(ctx, cid, c, coach.SetReflection{Text: text}, modeNone)

	default:
		clearMode(cid)
		r.apply(ctx, cid, coach.AskQuestion{Text: text})
	}
}

// fillField saves a field and moves on to then, or to the step buttons
// when then is modeNone. A refused or rejected value keeps the chat
// waiting for the same field.
func (r *Router) fillField(ctx context.Context, cid int64, c *coach.Coach, a coach.Action, then mode) {
	next, ok := r.saveField(ctx, cid, a)
	if !ok {
		return
	}
	if then != modeNone {
		r.prompt(ctx, cid, c, then)
		return
	}
	clearMode(cid)
	r.sendWithMarkup(ctx, cid, c.T("bot.saved_field"), makeActionsKeyboard(c, next.State.Step))
}

// saveField applies a field update and only answers when it was not saved.
func (r *Router) saveField(ctx context.Context, cid int64, a coach.Action) (session.Session, bool) {
	next, out, err := r.Sessions.Apply(sessionID(cid), a)
	if err != nil {
		r.logger().Warn("apply field", zap.Int64("chat", cid), zap.Error(err))
		return next, false
	}
	if out.Kind != coach.OutcomeSaved {
		r.send(ctx, cid, out.Message)
		return next, false
	}
	return next, true
}

func dataSummary(c *coach.Coach, st coach.State) string {
	stats := st.Analyze().Stats
	return c.T("bot.data.summary",
		strconv.Itoa(len(st.Categories)), strconv.Itoa(stats.Total), strconv.Itoa(stats.Max))
}

func scaleSummary(c *coach.Coach, st coach.Stats) string {
	return c.T("scale.summary",
		strconv.Itoa(st.Max), strconv.Itoa(st.SuggestedStep), strconv.Itoa(st.RoundedTop))
}

func filled(s string) bool {
	return strings.TrimSpace(s) != ""
}
