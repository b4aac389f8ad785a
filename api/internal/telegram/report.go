package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/store"
)

// sendReport uploads the self-check report as a .txt document and, when an
// archive is configured, keeps a copy of it.
func (r *Router) sendReport(ctx context.Context, cid int64) {
	sess, err := r.Sessions.Get(sessionID(cid))
	if err != nil {
		return
	}
	c := r.Sessions.Coach(sess.Locale)
	if sess.State.Step != coach.StepReport {
		r.send(ctx, cid, c.T("bot.report.not_ready"))
		return
	}

	body := c.BuildReport(sess.State)
	doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{Name: c.ReportFilename(), Bytes: []byte(body)})
	doc.Caption = c.T("bot.report.caption")
	r.wait(ctx)
	if _, err := r.Bot.Send(doc); err != nil {
		r.logger().Warn("send report", zap.Int64("chat", cid), zap.Error(err))
		return
	}
	r.send(ctx, cid, c.T("action.done"))
	r.archive(ctx, sess.ID, sess.Locale, sess.State.Goal, body)
}

func (r *Router) archive(ctx context.Context, sessionID, locale, goal, body string) {
	if r.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	id, err := r.Archive.Save(ctx, store.NewReport(sessionID, "telegram", locale, goal, body))
	if err != nil {
		r.logger().Error("archive report", zap.String("session", sessionID), zap.Error(err))
		return
	}
	r.logger().Info("report archived", zap.String("session", sessionID), zap.Int64("id", id))
}
