package newsletter

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/foliohq/core/internal/models"
	"github.com/foliohq/core/internal/pkg/mail"
	"github.com/foliohq/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// MailSender is the email delivery collaborator. Satisfied by *mail.Sender;
// tests substitute a fake.
type MailSender interface {
	SendSubscribeConfirm(ctx context.Context, to string, data mail.ConfirmData) error
	SendNewsletter(ctx context.Context, to string, data mail.NewsletterData) error
}

// perSendTimeout bounds one subscriber's delivery inside a fan-out run.
const perSendTimeout = 20 * time.Second

const taskTypeFanout = "newsletter_fanout"

// Fanout dispatches new-content notifications to eligible subscribers and
// confirmation emails to new ones.
type Fanout struct {
	svc      *Service
	sender   MailSender
	siteName string
	siteURL  string
	log      *zap.Logger
	tasks    *taskqueue.Service // optional dispatch ledger
}

func NewFanout(svc *Service, sender MailSender, siteName, siteURL string, log *zap.Logger) *Fanout {
	return &Fanout{
		svc:      svc,
		sender:   sender,
		siteName: siteName,
		siteURL:  siteURL,
		log:      log,
	}
}

// WithTaskLedger records fan-out runs in the Redis task ledger.
func (f *Fanout) WithTaskLedger(tasks *taskqueue.Service) *Fanout {
	f.tasks = tasks
	return f
}

// SendConfirmation issues a fresh token and emails the double-opt-in link.
func (f *Fanout) SendConfirmation(ctx context.Context, email string) error {
	tok, err := f.svc.Tokens().Issue(email)
	if err != nil {
		return err
	}
	return f.sender.SendSubscribeConfirm(ctx, email, mail.ConfirmData{
		SiteName:   f.siteName,
		ConfirmURL: f.buildLink("/confirm-subscription", email, tok),
	})
}

// DispatchConfirmation sends the confirmation email without blocking the
// caller. A mail-provider outage must never fail the visible subscribe
// action, so errors are only logged.
func (f *Fanout) DispatchConfirmation(email string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), perSendTimeout)
		defer cancel()
		if err := f.SendConfirmation(ctx, email); err != nil {
			f.log.Error("confirmation email failed",
				zap.String("email", email),
				zap.Error(err),
			)
		}
	}()
}

// Notify fans out one notification to every eligible subscriber. Sends run
// concurrently and are joined with all-settled semantics: one bad address
// cannot block or abort delivery to the rest. An empty recipient set is a
// success with zero sent.
func (f *Fanout) Notify(ctx context.Context, content Content) (Result, error) {
	recipients, err := f.svc.Recipients(content.Topic)
	if err != nil {
		return Result{}, err
	}
	if len(recipients) == 0 {
		return Result{}, nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result = Result{Total: len(recipients)}
	)
	for _, sub := range recipients {
		wg.Add(1)
		go func(sub models.SubscriberModel) {
			defer wg.Done()
			err := f.sendOne(ctx, sub, content)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				f.log.Warn("newsletter send failed",
					zap.String("email", sub.Email),
					zap.String("topic", content.Topic),
					zap.Error(err),
				)
			} else {
				result.Sent++
			}
		}(sub)
	}
	wg.Wait()

	f.log.Info("newsletter fan-out finished",
		zap.String("topic", content.Topic),
		zap.String("title", content.Title),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total),
	)
	return result, nil
}

// Dispatch runs Notify in the background, recording the task and its
// outcome in the ledger when one is configured. Used by the publish
// handlers: publishing must not wait for email delivery.
func (f *Fanout) Dispatch(content Content) {
	go func() {
		ctx := context.Background()

		var taskID string
		if f.tasks != nil {
			if task, err := f.tasks.Enqueue(ctx, taskTypeFanout, content); err == nil {
				taskID = task.ID
				_ = f.tasks.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")
			} else {
				f.log.Warn("fanout task enqueue failed", zap.Error(err))
			}
		}

		result, err := f.Notify(ctx, content)
		if f.tasks != nil && taskID != "" {
			status := taskqueue.TaskCompleted
			errMsg := ""
			if err != nil {
				status = taskqueue.TaskFailed
				errMsg = err.Error()
			}
			_ = f.tasks.UpdateStatus(ctx, taskID, status, result, errMsg)
		}
		if err != nil {
			f.log.Error("newsletter fan-out failed",
				zap.String("topic", content.Topic),
				zap.Error(err),
			)
		}
	}()
}

// sendOne delivers to a single subscriber with a fresh personalized
// unsubscribe token, so recipients need not already possess one.
func (f *Fanout) sendOne(ctx context.Context, sub models.SubscriberModel, content Content) error {
	tok, err := f.svc.Tokens().Issue(sub.Email)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, perSendTimeout)
	defer cancel()

	return f.sender.SendNewsletter(ctx, sub.Email, mail.NewsletterData{
		SiteName:       f.siteName,
		Title:          content.Title,
		Excerpt:        content.Excerpt,
		CoverURL:       content.CoverURL,
		Tags:           content.Tags,
		DetailURL:      f.siteURL + content.Path,
		UnsubscribeURL: f.buildLink("/unsubscribe", sub.Email, tok),
	})
}

func (f *Fanout) buildLink(path, email, tok string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", tok)
	return f.siteURL + path + "?" + q.Encode()
}
