package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifyhub/internal/idempotency"
	"github.com/dmitrymomot/notifyhub/internal/notification"
	"github.com/dmitrymomot/notifyhub/internal/status"
	"github.com/dmitrymomot/notifyhub/pkg/broker"
	"github.com/dmitrymomot/notifyhub/pkg/correlation"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

const contentTypeJSON = "application/json"

// Result is the outcome of Submit. Duplicate is true when the receipt came
// from the idempotency store and nothing was enqueued.
type Result struct {
	Receipt   notification.Receipt
	Duplicate bool
}

type Dispatcher struct {
	idem   idempotency.Store
	status status.Tracker
	pub    broker.Publisher
	cfg    Config
	newID  func() string
	now    func() time.Time
	log    *slog.Logger
}

type Option func(*Dispatcher)

// WithIDGenerator replaces uuid.NewString for notification ids.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		if fn != nil {
			d.newID = fn
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

func New(idem idempotency.Store, tracker status.Tracker, pub broker.Publisher, cfg Config, opts ...Option) *Dispatcher {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = idempotency.DefaultTTL
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 5 * time.Second
	}
	d := &Dispatcher{
		idem:   idem,
		status: tracker,
		pub:    pub,
		cfg:    cfg,
		newID:  uuid.NewString,
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(logger.Component("dispatcher"))
	return d
}

// Submit enqueues req once per request_id. Errors are
// *notification.ValidationError or *notification.DispatchError.
func (d *Dispatcher) Submit(ctx context.Context, req notification.Request) (Result, error) {
	if ch, err := notification.ParseChannel(req.Channel.String()); err == nil {
		req.Channel = ch
	}
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	log := d.log.With(logger.RequestID(req.RequestID), logger.Channel(req.Channel.String()))

	var cached *notification.Receipt
	if err := d.call(ctx, func(ctx context.Context) (err error) {
		cached, err = d.idem.Get(ctx, req.RequestID)
		return err
	}); err != nil {
		return Result{}, &notification.DispatchError{Op: "idempotency lookup", Retryable: true, Err: err}
	}
	if cached != nil {
		log.InfoContext(ctx, "duplicate request, returning stored receipt",
			logger.NotificationID(cached.NotificationID))
		return Result{Receipt: *cached, Duplicate: true}, nil
	}

	receipt, err := d.enqueue(ctx, req, nil)
	if err != nil {
		log.ErrorContext(ctx, "failed to enqueue notification", logger.Error(err))
		return Result{}, err
	}

	if err := d.call(ctx, func(ctx context.Context) error {
		return d.idem.Put(ctx, req.RequestID, receipt, d.cfg.IdempotencyTTL)
	}); err != nil {
		// the envelope is already queued; failing here would invite a
		// client retry that enqueues it twice
		log.WarnContext(ctx, "failed to store idempotency entry",
			logger.NotificationID(receipt.NotificationID), logger.Error(err))
	}

	log.InfoContext(ctx, "notification enqueued", logger.NotificationID(receipt.NotificationID))
	return Result{Receipt: receipt}, nil
}

// enqueue assigns an id, records PENDING and publishes. Extra headers are
// added to the broker message.
func (d *Dispatcher) enqueue(ctx context.Context, req notification.Request, headers map[string]string) (notification.Receipt, error) {
	q, err := notification.Route(req.Channel)
	if err != nil {
		return notification.Receipt{}, &notification.DispatchError{Op: "route", Err: err}
	}

	id := d.newID()
	env := notification.NewEnvelope(req, id, d.now())
	body, err := env.Marshal()
	if err != nil {
		return notification.Receipt{}, &notification.DispatchError{Op: "encode", Err: err}
	}

	if err := d.call(ctx, func(ctx context.Context) error {
		return d.status.Create(ctx, status.Record{
			NotificationID: id,
			RequestID:      req.RequestID,
			Channel:        req.Channel,
			Status:         notification.StatusPending,
		})
	}); err != nil {
		return notification.Receipt{}, &notification.DispatchError{Op: "status create", Retryable: true, Err: err}
	}

	// last point where cancellation aborts without an enqueue; the PENDING
	// record is left for the reconciler
	if err := ctx.Err(); err != nil {
		return notification.Receipt{}, &notification.DispatchError{Op: "publish", Retryable: true, Err: err}
	}

	msg := broker.Message{
		ID:          id,
		ContentType: contentTypeJSON,
		Body:        body,
		Headers:     map[string]string{},
		Timestamp:   env.EnqueuedAt,
	}
	for k, v := range headers {
		msg.Headers[k] = v
	}
	if cid := correlation.FromContext(ctx); cid != "" {
		msg.Headers[correlation.Header] = cid
	}

	if err := d.call(ctx, func(ctx context.Context) error {
		return d.pub.Publish(ctx, q.RoutingKey, msg)
	}); err != nil {
		return notification.Receipt{}, &notification.DispatchError{Op: "publish", Retryable: true, Err: err}
	}

	return notification.Receipt{
		NotificationID: id,
		Status:         notification.StatusPending,
		RequestID:      req.RequestID,
	}, nil
}

func (d *Dispatcher) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}
