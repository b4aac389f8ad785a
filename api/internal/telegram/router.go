package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/session"
	"barchart-coach/api/internal/store"
	"barchart-coach/api/internal/util"
)

// maxMessageRunes keeps replies under Telegram's 4096 character limit.
const maxMessageRunes = 3900

// Sender is the part of *tgbotapi.BotAPI the router uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// ReportArchive stores exported reports.
type ReportArchive interface {
	Save(ctx context.Context, rep store.Report) (int64, error)
}

type Router struct {
	Bot      Sender
	Sessions *session.Registry
	// Archive is optional; nil disables archiving.
	Archive ReportArchive
	Log     *zap.Logger
	// Limiter throttles outgoing calls; nil means unlimited.
	Limiter *rate.Limiter

	DefaultLocale string
}

func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) language(u *tgbotapi.User) string {
	if u != nil && strings.TrimSpace(u.LanguageCode) != "" {
		return u.LanguageCode
	}
	return r.DefaultLocale
}

// open returns the chat's session, creating it in the user's language.
func (r *Router) open(chatID int64, u *tgbotapi.User) (session.Session, *coach.Coach) {
	s := r.Sessions.Open(sessionID(chatID), r.language(u))
	return s, r.Sessions.Coach(s.Locale)
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	if upd.Message == nil || upd.Message.Chat == nil {
		return
	}
	if upd.Message.IsCommand() {
		r.HandleCommand(ctx, upd.Message)
		return
	}
	if text := strings.TrimSpace(upd.Message.Text); text != "" {
		r.handleText(ctx, upd.Message.Chat.ID, upd.Message.From, text)
	}
}

func (r *Router) HandleCommand(ctx context.Context, m *tgbotapi.Message) {
	cid := m.Chat.ID
	sess, c := r.open(cid, m.From)
	args := strings.TrimSpace(m.CommandArguments())

	switch m.Command() {
	case "start":
		r.send(ctx, cid, c.T("bot.start"))
		r.showStep(ctx, cid, sess, c)
	case "help":
		r.send(ctx, cid, c.T("bot.help"))
	case "status":
		st := sess.State
		r.send(ctx, cid, c.T("bot.status",
			strconv.Itoa(int(st.Step)), c.StepTitle(st.Step), strconv.Itoa(st.HintsGiven)))
	case "hint":
		r.apply(ctx, cid, coach.RequestHint{})
	case "validate":
		r.validate(ctx, cid)
	case "report":
		r.sendReport(ctx, cid)
	case "reset":
		r.reset(ctx, cid)
	case "question":
		if args == "" {
			setMode(cid, modeQuestion)
			r.send(ctx, cid, c.T("bot.prompt.question"))
			return
		}
		r.apply(ctx, cid, coach.AskQuestion{Text: args})
	case "lang":
		r.switchLanguage(ctx, cid, args, c)
	default:
		r.send(ctx, cid, c.T("bot.unknown_command"))
	}
}

func (r *Router) switchLanguage(ctx context.Context, cid int64, arg string, c *coach.Coach) {
	if arg == "" {
		r.send(ctx, cid, c.T("bot.lang.usage"))
		return
	}
	sess, err := r.Sessions.SetLocale(sessionID(cid), arg)
	if err != nil {
		r.logger().Warn("set locale", zap.Int64("chat", cid), zap.Error(err))
		return
	}
	c = r.Sessions.Coach(sess.Locale)
	r.send(ctx, cid, c.T("bot.lang.set", sess.Locale))
	r.showStep(ctx, cid, sess, c)
}

// apply runs a on the chat's session and replies with the outcome.
func (r *Router) apply(ctx context.Context, cid int64, a coach.Action) (session.Session, coach.Outcome, bool) {
	sess, out, err := r.Sessions.Apply(sessionID(cid), a)
	if err != nil {
		r.logger().Warn("apply action", zap.Int64("chat", cid), zap.Error(err))
		return sess, out, false
	}
	if out.Message != "" {
		r.sendWithMarkup(ctx, cid, out.Message, nil)
	}
	return sess, out, true
}

func (r *Router) validate(ctx context.Context, cid int64) {
	sess, out, ok := r.apply(ctx, cid, coach.Validate{})
	if ok && out.Kind == coach.OutcomeAdvanced {
		clearMode(cid)
		r.showStep(ctx, cid, sess, r.Sessions.Coach(sess.Locale))
	}
}

func (r *Router) reset(ctx context.Context, cid int64) {
	clearMode(cid)
	sess, _, ok := r.apply(ctx, cid, coach.Restart{})
	if ok {
		r.showStep(ctx, cid, sess, r.Sessions.Coach(sess.Locale))
	}
}

func (r *Router) wait(ctx context.Context) {
	if r.Limiter == nil {
		return
	}
	if err := r.Limiter.Wait(ctx); err != nil {
		r.logger().Debug("rate limiter", zap.Error(err))
	}
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	r.sendWithMarkup(ctx, chatID, text, nil)
}

func (r *Router) sendWithMarkup(ctx context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, util.Truncate(text, maxMessageRunes))
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	r.wait(ctx)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("send message", zap.Int64("chat", chatID), zap.Error(err))
	}
}
