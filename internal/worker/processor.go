package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifyhub/internal/directory"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/internal/templates"
	"github.com/dmitrymomot/notifyhub/pkg/async"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// SkipReasonPreference marks a notification the user opted out of.
const SkipReasonPreference = "PreferenceSkip"

type Processor struct {
	deliverer   Deliverer
	users       directory.Directory
	templates   templates.Store
	renderer    *templates.Renderer
	tracker     status.Tracker
	callTimeout time.Duration
	log         *slog.Logger
}

type Option func(*Processor)

func WithCallTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.log = l
		}
	}
}

func NewProcessor(d Deliverer, users directory.Directory, tpls templates.Store, tracker status.Tracker, opts ...Option) (*Processor, error) {
	if d == nil || users == nil || tpls == nil || tracker == nil {
		return nil, ErrMissingDependency
	}
	p := &Processor{
		deliverer:   d,
		users:       users,
		templates:   tpls,
		renderer:    templates.NewRenderer(),
		tracker:     tracker,
		callTimeout: 5 * time.Second,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(logger.Component("worker"), logger.Channel(d.Channel().String()))
	return p, nil
}

// Handle implements broker.Handler.
func (p *Processor) Handle(ctx context.Context, msg broker.Message) error {
	env, err := notification.DecodeEnvelope(msg.Body)
	if err != nil {
		// without a notification_id there is no record to fail
		p.log.ErrorContext(ctx, "undecodable envelope", slog.String("message_id", msg.ID), logger.Error(err))
		return errors.Join(ErrInvalidEnvelope, err)
	}
	log := p.log.With(logger.NotificationID(env.NotificationID), logger.RequestID(env.RequestID))

	var rec status.Record
	err = p.call(ctx, func(ctx context.Context) (err error) {
		rec, err = p.tracker.Get(ctx, env.NotificationID)
		return err
	})
	switch {
	case errors.Is(err, status.ErrNotFound):
		log.ErrorContext(ctx, "envelope has no status record")
		return fmt.Errorf("%w: %q", ErrUnknownRecord, env.NotificationID)
	case err != nil:
		log.WarnContext(ctx, "status lookup failed", logger.Error(err))
		return broker.Requeue(err)
	case rec.Status.Terminal():
		log.InfoContext(ctx, "notification already final, skipping redelivery", logger.Status(string(rec.Status)))
		return nil
	}

	outcome, cause := p.deliver(ctx, log, env)
	return p.finalize(ctx, log, env, outcome, cause)
}

// deliver runs the pipeline and returns the transition to record. cause is
// the failure behind a FAILED transition.
func (p *Processor) deliver(ctx context.Context, log *slog.Logger, env notification.Envelope) (status.Transition, error) {
	if err := env.Validate(); err != nil {
		return failed("invalid envelope", err)
	}
	if env.Channel != p.deliverer.Channel() {
		err := fmt.Errorf("%w: got %s", ErrChannelMismatch, env.Channel)
		return failed("invalid envelope", err)
	}

	// the template is fetched while the user is resolved
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	pending := async.Go(ctx, func(ctx context.Context) (tpl templates.Template, err error) {
		err = p.call(ctx, func(ctx context.Context) (err error) {
			tpl, err = p.templates.Get(ctx, env.TemplateCode)
			return err
		})
		return tpl, err
	})

	var user directory.User
	if err := p.call(ctx, func(ctx context.Context) (err error) {
		user, err = p.users.GetUser(ctx, env.UserID)
		return err
	}); err != nil {
		return failed("user lookup", err)
	}
	if !user.Enabled(env.Channel) {
		log.InfoContext(ctx, "channel disabled by user, skipping", logger.UserID(env.UserID))
		return status.Skipped(SkipReasonPreference), nil
	}
	recipient := user.Address(env.Channel)
	if recipient == "" {
		return failed("user lookup", fmt.Errorf("%w: %s", ErrNoAddress, env.Channel))
	}

	tpl, err := pending.Await(ctx)
	if err != nil {
		return failed("render", &notification.RenderError{TemplateCode: env.TemplateCode, Err: err})
	}
	rendered, err := p.renderer.Render(env.Channel, tpl, env.Variables)
	if err != nil {
		return failed("render", err)
	}

	if err := p.call(ctx, func(ctx context.Context) error {
		return p.deliverer.Deliver(ctx, Message{
			NotificationID: env.NotificationID,
			RequestID:      env.RequestID,
			TemplateCode:   env.TemplateCode,
			Recipient:      recipient,
			Subject:        rendered.Subject,
			Body:           rendered.Body,
			Priority:       env.Priority,
			Metadata:       env.Metadata,
		})
	}); err != nil {
		return failed("deliver", &notification.DeliveryError{Channel: env.Channel, Err: err})
	}
	return status.Delivered(), nil
}

func (p *Processor) finalize(ctx context.Context, log *slog.Logger, env notification.Envelope, t status.Transition, cause error) error {
	err := p.call(ctx, func(ctx context.Context) error {
		_, err := p.tracker.Transition(ctx, env.NotificationID, t)
		return err
	})
	switch {
	case errors.Is(err, status.ErrAlreadyFinal):
		log.InfoContext(ctx, "notification finalised by another consumer")
		return nil
	case err != nil:
		log.ErrorContext(ctx, "failed to record status, requeueing", logger.Error(errors.Join(err, cause)))
		return broker.Requeue(err)
	}

	if cause != nil {
		log.WarnContext(ctx, "notification failed", logger.Error(cause))
		return cause
	}
	log.InfoContext(ctx, "notification processed",
		logger.Status(string(t.To)),
		slog.String("skip_reason", t.SkipReason),
	)
	return nil
}

func (p *Processor) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return fn(ctx)
}

func failed(stage string, err error) (status.Transition, error) {
	return status.Failed(fmt.Sprintf("%s: %v", stage, err)), err
}
