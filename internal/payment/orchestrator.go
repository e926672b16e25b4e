package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/greenhatah/hotspot_pay/internal/gateway"
	"github.com/greenhatah/hotspot_pay/internal/logging"
	"github.com/greenhatah/hotspot_pay/internal/notification"
)

// State is a step of the payment workflow.
type State string

const (
	StateIdle                State = "idle"
	StateInitiating          State = "initiating"
	StateAwaitingUserPayment State = "awaiting_user_payment"
	StateConfirming          State = "confirming"
	StateSucceeded           State = "succeeded"
	StateInitFailed          State = "init_failed"
	StateConfirmFailed       State = "confirm_failed"
	StateConfirmTimedOut     State = "confirm_timed_out"
)

var (
	// ErrStaleSession marks a completion that arrived after its session was
	// superseded. It is dropped and never shown to the user.
	ErrStaleSession = errors.New("stale payment session")
	// ErrPaymentFailed is returned when the gateway reports FAILED.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrConfirmTimeout is returned when the retry policy gives up.
	ErrConfirmTimeout = errors.New("payment confirmation timed out")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("payment orchestrator closed")
)

const (
	initServerErrorMessage   = "Server error: payment could not be started"
	verificationErrorMessage = "Verification error: payment could not be verified"
)

// Target is the access point the user is paying for.
type Target struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// URLOpener sends the user to the gateway's hosted payment page.
type URLOpener interface {
	Open(url string)
}

// URLOpenerFunc adapts a function to URLOpener.
type URLOpenerFunc func(url string)

func (f URLOpenerFunc) Open(url string) { f(url) }

// CredentialPresenter displays an issued access credential.
type CredentialPresenter interface {
	Present(credential string)
}

// CredentialPresenterFunc adapts a function to CredentialPresenter.
type CredentialPresenterFunc func(credential string)

func (f CredentialPresenterFunc) Present(credential string) { f(credential) }

// Session is one payment attempt.
type Session struct {
	Generation     uint64
	Phone          string
	Tier           Tier
	Target         Target
	PaymentID      string
	CredentialSeed string
	PaymentURL     string
	Credential     string
	Attempts       int
	ConfirmStarted time.Time
}

// Snapshot is the externally visible state of an orchestrator.
type Snapshot struct {
	SessionID        string `json:"session_id"`
	Generation       uint64 `json:"generation"`
	State            State  `json:"state"`
	Loading          bool   `json:"loading"`
	Message          string `json:"message,omitempty"`
	Target           Target `json:"target"`
	Amount           int64  `json:"amount,omitempty"`
	ValidityHours    int    `json:"validity_hours,omitempty"`
	PaymentID        string `json:"payment_id,omitempty"`
	PaymentURL       string `json:"payment_url,omitempty"`
	Credential       string `json:"credential,omitempty"`
	IssuedCredential string `json:"issued_credential,omitempty"`
	ConfirmAttempts  int    `json:"confirm_attempts,omitempty"`
}

// Options configures an Orchestrator. Gateway is required.
type Options struct {
	ID             string
	Target         Target
	Gateway        gateway.Client
	Retry          RetryPolicy
	Scheduler      Scheduler
	Opener         URLOpener
	Presenter      CredentialPresenter
	Notifier       notification.Notifier
	Logger         *slog.Logger
	SupportContact string
	// RetryTimeout bounds each scheduled re-check, which runs detached from
	// the caller's context.
	RetryTimeout time.Duration
	// OnChange receives a snapshot after every transition and loading change.
	OnChange func(Snapshot)
	Clock    func() time.Time
}

// Orchestrator drives pay → wait for confirmation → issue credential for a
// single user session. Each Pay starts a new generation; completions and
// scheduled re-checks carrying an older generation are dropped.
type Orchestrator struct {
	id        string
	target    Target
	gateway   gateway.Client
	retry     RetryPolicy
	scheduler Scheduler
	opener    URLOpener
	presenter CredentialPresenter
	notifier  notification.Notifier
	logger    *slog.Logger
	support   string
	timeout   time.Duration
	onChange  func(Snapshot)
	now       func() time.Time

	mu         sync.Mutex
	generation uint64
	state      State
	session    *Session
	loading    bool
	message    string
	issued     string
	timer      Timer
	closed     bool
}

// NewOrchestrator constructs an orchestrator in the Idle state.
func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if opts.Target.Name == "" {
		return nil, fmt.Errorf("target access point is required")
	}
	if opts.Retry == (RetryPolicy{}) {
		opts.Retry = DefaultRetryPolicy()
	} else if opts.Retry.Delay <= 0 {
		opts.Retry.Delay = DefaultRetryPolicy().Delay
	}
	if opts.Scheduler == nil {
		opts.Scheduler = SystemScheduler
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Notifier == nil {
		opts.Notifier = notification.NewLoggerNotifier(opts.Logger)
	}
	if opts.RetryTimeout <= 0 {
		opts.RetryTimeout = 15 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Orchestrator{
		id:        opts.ID,
		target:    opts.Target,
		gateway:   opts.Gateway,
		retry:     opts.Retry,
		scheduler: opts.Scheduler,
		opener:    opts.Opener,
		presenter: opts.Presenter,
		notifier:  opts.Notifier,
		logger:    opts.Logger.With(slog.String("session_id", opts.ID)),
		support:   opts.SupportContact,
		timeout:   opts.RetryTimeout,
		onChange:  opts.OnChange,
		now:       opts.Clock,
		state:     StateIdle,
	}, nil
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Pay validates the input and creates a payment intent. Any previous
// attempt, including a pending re-check, is superseded. Invalid input leaves
// the current state untouched and returns a *ValidationError.
func (o *Orchestrator) Pay(ctx context.Context, phone string, amount int64) (Snapshot, error) {
	clean, err := ValidatePhone(phone)
	var tier Tier
	if err == nil {
		tier, err = validateAmount(amount)
	}
	if err != nil {
		o.mu.Lock()
		if o.closed {
			o.mu.Unlock()
			return Snapshot{}, ErrClosed
		}
		o.message = err.Error()
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.notify(ctx, notification.KindValidation, err.Error())
		o.changed(snap)
		return snap, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	o.stopTimerLocked()
	o.generation++
	gen := o.generation
	o.session = &Session{Generation: gen, Phone: clean, Tier: tier, Target: o.target}
	o.state = StateInitiating
	o.loading = true
	o.message = ""
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.changed(snap)

	o.logger.Info("payment initiating",
		slog.Uint64("generation", gen),
		slog.String("state", string(snap.State)),
		logging.Phone(clean),
		slog.Int64("amount", tier.Amount),
		slog.String("router_name", o.target.Name),
	)

	resp, err := o.gateway.Init(ctx, gateway.InitRequest{
		Phone:      clean,
		Amount:     tier.Amount,
		RouterName: o.target.Name,
		Commune:    o.target.Location,
	})

	o.mu.Lock()
	if gen != o.generation {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.logger.Debug("stale init completion dropped", slog.Uint64("generation", gen))
		return snap, nil
	}
	o.loading = false

	if err != nil {
		msg := initServerErrorMessage
		var appErr *gateway.ApplicationError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		o.state = StateInitFailed
		o.message = msg
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Warn("payment init failed",
			slog.Uint64("generation", gen),
			slog.String("state", string(snap.State)),
			slog.Any("error", err),
		)
		o.notify(ctx, notification.KindPaymentInitFailed, msg)
		o.changed(snap)
		return snap, err
	}

	s := o.session
	s.PaymentID = resp.PaymentID
	s.CredentialSeed = resp.MAC
	s.PaymentURL = resp.PaymentURL
	o.state = StateAwaitingUserPayment
	snap = o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("payment awaiting user",
		slog.Uint64("generation", gen),
		slog.String("state", string(snap.State)),
		slog.String("payment_id", resp.PaymentID),
	)
	o.changed(snap)
	if resp.PaymentURL != "" && o.opener != nil {
		o.opener.Open(resp.PaymentURL)
	}
	return snap, nil
}

// Confirm is the user's "I have paid" acknowledgement. It polls the gateway
// once; a PENDING answer schedules exactly one delayed re-check, which
// repeats until a terminal answer or the retry policy gives up. Confirm is a
// no-op without a payment id or while a confirmation is already running.
func (o *Orchestrator) Confirm(ctx context.Context) (Snapshot, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Snapshot{}, ErrClosed
	}
	s := o.session
	if s == nil || s.PaymentID == "" || (o.state != StateAwaitingUserPayment && o.state != StateConfirmFailed) {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, nil
	}
	o.state = StateConfirming
	o.message = ""
	s.Attempts = 0
	s.ConfirmStarted = o.now()
	gen := o.generation
	o.mu.Unlock()

	return o.poll(ctx, gen)
}

// Reset discards the current attempt and cancels any pending re-check. The
// last issued credential stays visible.
func (o *Orchestrator) Reset() Snapshot {
	o.mu.Lock()
	o.stopTimerLocked()
	o.generation++
	o.session = nil
	o.state = StateIdle
	o.loading = false
	o.message = ""
	gen := o.generation
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info("payment reset", slog.Uint64("generation", gen), slog.String("state", string(snap.State)))
	o.changed(snap)
	return snap
}

// Close cancels any pending re-check and rejects further calls.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopTimerLocked()
	o.generation++
	o.session = nil
	o.closed = true
}

func (o *Orchestrator) poll(ctx context.Context, gen uint64) (Snapshot, error) {
	o.mu.Lock()
	if !o.currentLocked(gen) {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrStaleSession
	}
	s := o.session
	o.timer = nil

	if o.retry.exhausted(s.Attempts, o.now().Sub(s.ConfirmStarted)) {
		msg := o.withSupport("Payment confirmation is taking too long")
		o.state = StateConfirmTimedOut
		o.message = msg
		o.session = nil
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Warn("payment confirmation timed out",
			slog.Uint64("generation", gen),
			slog.String("state", string(snap.State)),
			slog.String("payment_id", s.PaymentID),
			slog.Int("attempts", s.Attempts),
		)
		o.notify(ctx, notification.KindPaymentFailed, msg)
		o.changed(snap)
		return snap, ErrConfirmTimeout
	}

	s.Attempts++
	o.loading = true
	req := gateway.ConfirmRequest{PaymentID: s.PaymentID, Commune: s.Target.Location}
	snap := o.snapshotLocked()
	o.mu.Unlock()
	o.changed(snap)

	resp, err := o.gateway.Confirm(ctx, req)

	o.mu.Lock()
	if !o.currentLocked(gen) {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		o.logger.Debug("stale confirmation dropped", slog.Uint64("generation", gen), slog.String("payment_id", req.PaymentID))
		return snap, ErrStaleSession
	}
	o.loading = false

	var appErr *gateway.ApplicationError
	switch {
	case errors.As(err, &appErr):
		return o.failConfirmLocked(ctx, gen, appErr.Message, true, err)
	case err != nil:
		return o.failConfirmLocked(ctx, gen, verificationErrorMessage, false, err)
	}

	switch resp.Outcome() {
	case gateway.OutcomeFailed:
		return o.failConfirmLocked(ctx, gen, o.withSupport("Payment failed"), true, ErrPaymentFailed)

	case gateway.OutcomePending:
		o.timer = o.scheduler.AfterFunc(o.retry.Delay, func() { o.recheck(gen) })
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Info("payment pending",
			slog.Uint64("generation", gen),
			slog.String("state", string(snap.State)),
			slog.String("payment_id", req.PaymentID),
			slog.Int("attempt", snap.ConfirmAttempts),
		)
		o.changed(snap)
		return snap, nil

	case gateway.OutcomeSucceeded:
		credential := resp.MAC
		if credential == "" {
			credential = s.CredentialSeed
		}
		s.Credential = credential
		o.issued = credential
		o.state = StateSucceeded
		snap := o.snapshotLocked()
		o.mu.Unlock()

		o.logger.Info("payment confirmed",
			slog.Uint64("generation", gen),
			slog.String("state", string(snap.State)),
			slog.String("payment_id", req.PaymentID),
		)
		o.notify(ctx, notification.KindAccessGranted, fmt.Sprintf("Access granted for %dh", s.Tier.Hours()))
		o.changed(snap)
		if o.presenter != nil {
			o.presenter.Present(credential)
		}
		return snap, nil

	default:
		unknown := fmt.Errorf("%w: unrecognized confirmation response", gateway.ErrTransport)
		return o.failConfirmLocked(ctx, gen, verificationErrorMessage, false, unknown)
	}
}

// failConfirmLocked moves to ConfirmFailed and releases o.mu. When discard
// is set the session is dropped and the user must start over; otherwise the
// payment id is kept so the user can acknowledge again.
func (o *Orchestrator) failConfirmLocked(ctx context.Context, gen uint64, msg string, discard bool, cause error) (Snapshot, error) {
	paymentID := o.session.PaymentID
	o.state = StateConfirmFailed
	o.message = msg
	if discard {
		o.session = nil
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Warn("payment confirmation failed",
		slog.Uint64("generation", gen),
		slog.String("state", string(snap.State)),
		slog.String("payment_id", paymentID),
		slog.Bool("session_discarded", discard),
		slog.Any("error", cause),
	)
	o.notify(ctx, notification.KindPaymentFailed, msg)
	o.changed(snap)
	return snap, cause
}

func (o *Orchestrator) recheck(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if _, err := o.poll(ctx, gen); errors.Is(err, ErrStaleSession) {
		o.logger.Debug("scheduled re-check ignored", slog.Uint64("generation", gen))
	}
}

// currentLocked reports whether gen still owns a confirming session.
func (o *Orchestrator) currentLocked(gen uint64) bool {
	return !o.closed && gen == o.generation && o.session != nil && o.state == StateConfirming
}

func (o *Orchestrator) stopTimerLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) withSupport(msg string) string {
	if o.support == "" {
		return msg
	}
	return msg + ". Or call customer service: " + o.support
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:        o.id,
		Generation:       o.generation,
		State:            o.state,
		Loading:          o.loading,
		Message:          o.message,
		Target:           o.target,
		IssuedCredential: o.issued,
	}
	if s := o.session; s != nil {
		snap.Amount = s.Tier.Amount
		snap.ValidityHours = s.Tier.Hours()
		snap.PaymentID = s.PaymentID
		snap.PaymentURL = s.PaymentURL
		snap.Credential = s.Credential
		snap.ConfirmAttempts = s.Attempts
	}
	return snap
}

func (o *Orchestrator) notify(ctx context.Context, kind, body string) {
	if err := o.notifier.Send(ctx, notification.Message{Kind: kind, Destination: o.id, Body: body}); err != nil {
		o.logger.Warn("notification failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

func (o *Orchestrator) changed(snap Snapshot) {
	if o.onChange != nil {
		o.onChange(snap)
	}
}
