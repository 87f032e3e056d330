package dialer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/coldcall/pkg/logger"
)

// Engine runs the outbound campaign: it claims leads, admits calls within
// capacity, drives each attempt through its lifecycle and settles outcomes.
//
// All lifecycle events, whether from provider callbacks, the conversation
// service, the watchdog or the engine's own effects, are applied by a single
// event-loop goroutine, so transitions of one attempt never interleave.
type Engine struct {
	cfg          Config
	store        Store
	telephony    Telephony
	conversation Conversation

	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	lifecycle *Lifecycle
	policy    RetryPolicy
	window    CallWindow
	admission *Admission
	queue     *LeadQueue
	watchdog  Watchdog
	health    HealthMonitor
	outcomes  *OutcomeDispatcher

	events   chan envelope
	done     chan struct{}
	started  atomic.Bool
	serving  atomic.Bool
	running  atomic.Bool
	lastTick atomic.Int64

	// dispatchMu makes slot acquisition and attempt creation one step
	// relative to other dispatches and to Start/Stop.
	dispatchMu sync.Mutex

	slotsMu sync.Mutex
	slots   map[uuid.UUID]Slot

	effects   sync.WaitGroup
	effectsMu sync.Mutex // Protects stopping state and WaitGroup operations
	stopping  atomic.Bool
}

type envelope struct {
	event Event
	ack   chan error
}

// New creates an engine. Telephony, conversation and meeting collaborators
// are required; everything else is optional.
func New(cfg Config, store Store, telephony Telephony, conversation Conversation, meetings MeetingScheduler, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || telephony == nil || conversation == nil || meetings == nil {
		return nil, ErrNilDependency
	}
	window, err := cfg.CallWindow()
	if err != nil {
		return nil, err
	}

	options := &engineOptions{
		logger: slog.Default(),
		now:    time.Now,
		owner:  uuid.New(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.idempotency == nil {
		options.idempotency = NewMemoryIdempotency()
	}

	log := options.logger.With(logger.Component("dialer"))

	return &Engine{
		cfg:          cfg,
		store:        store,
		telephony:    telephony,
		conversation: conversation,
		logger:       log,
		metrics:      options.metrics,
		now:          options.now,
		lifecycle:    NewLifecycle(),
		policy:       NewRetryPolicy(cfg),
		window:       window,
		admission:    NewAdmission(cfg.MaxConcurrentCalls),
		queue:        NewLeadQueue(store, options.owner, cfg.ClaimTTL, window, options.now),
		watchdog:     NewWatchdog(cfg),
		health:       NewHealthMonitor(cfg),
		outcomes: &OutcomeDispatcher{
			store:       store,
			meetings:    meetings,
			idempotency: options.idempotency,
			notifier:    options.notifier,
			sink:        options.sink,
			keyTTL:      cfg.MeetingKeyTTL,
			logger:      log,
			metrics:     options.metrics,
		},
		events: make(chan envelope, cfg.eventBuffer()),
		done:   make(chan struct{}),
		slots:  make(map[uuid.UUID]Slot),
	}, nil
}

// Run restores in-flight state and blocks running the event loop, the
// scheduler and the watchdog until ctx is cancelled. Only a storage failure
// during startup reconciliation is returned as an error.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}

	queued, err := e.reconcile(ctx)
	if err != nil {
		close(e.done)
		return fmt.Errorf("reconcile in-flight attempts: %w", err)
	}

	e.serving.Store(true)
	if e.cfg.AutoStart {
		e.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.loop(gctx) })
	g.Go(func() error {
		e.redispatch(gctx, queued)
		e.every(gctx, e.tick)
		return nil
	})
	g.Go(func() error {
		e.every(gctx, e.sweep)
		return nil
	})

	e.logger.InfoContext(ctx, "dialer engine started",
		slog.Int("max_concurrent_calls", e.cfg.MaxConcurrentCalls),
		slog.Duration("check_interval", e.cfg.CheckInterval),
		slog.String("call_window", e.window.String()),
		slog.String("owner_id", e.queue.Owner().String()),
	)

	err = g.Wait()
	e.serving.Store(false)

	e.effectsMu.Lock()
	e.stopping.Store(true)
	e.effectsMu.Unlock()
	e.effects.Wait()

	e.logger.Info("dialer engine stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Start enables dispatch. It reports whether the state changed.
func (e *Engine) Start() bool {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	if e.running.Swap(true) {
		return false
	}
	e.lastTick.Store(e.now().UnixNano())
	e.logger.Info("scheduler started")
	return true
}

// Stop disables dispatch. In-flight calls keep progressing.
func (e *Engine) Stop() bool {
	e.dispatchMu.Lock()
	defer e.dispatchMu.Unlock()

	if !e.running.Swap(false) {
		return false
	}
	e.logger.Info("scheduler stopped", slog.Int("active_calls", e.admission.Active()))
	return true
}

// Running reports whether the scheduler dispatches new calls.
func (e *Engine) Running() bool { return e.running.Load() }

// Serving reports whether the event loop accepts events.
func (e *Engine) Serving() bool { return e.serving.Load() }

// Submit applies an event and waits until it has been persisted. Unknown
// attempts yield ErrAttemptNotFound; duplicate or late events return nil.
func (e *Engine) Submit(ctx context.Context, ev Event) error {
	if !e.serving.Load() {
		return ErrEngineStopped
	}
	if !ev.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}
	if ev.AttemptID == uuid.Nil && ev.CallHandle == "" {
		return ErrEventTarget
	}

	env := envelope{event: ev, ack: make(chan error, 1)}
	select {
	case e.events <- env:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}

	select {
	case err := <-env.ack:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
}

func (e *Engine) loop(ctx context.Context) error {
	defer close(e.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-e.events:
			env.ack <- e.process(ctx, env.event)
		}
	}
}

// process applies ev and any follow-up events to one attempt.
func (e *Engine) process(ctx context.Context, ev Event) error {
	attempt, err := e.lookup(ctx, ev)
	if err != nil {
		return err
	}

	pending := []Event{ev}
	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]

		step, err := e.lifecycle.Apply(ctx, *attempt, cur, e.now())
		if err != nil {
			return err
		}
		if step.Ignored != IgnoredNone {
			e.metrics.Ignored(cur.Kind, step.Ignored)
			e.logger.DebugContext(ctx, "event ignored",
				logger.AttemptID(attempt.ID),
				logger.Event(string(cur.Kind)),
				logger.CallState(string(attempt.State)),
				slog.String("reason", string(step.Ignored)),
			)
		}
		if !step.Dirty() {
			continue
		}

		if step.Terminal() {
			if err := e.finalize(ctx, step.Attempt); err != nil {
				return err
			}
		} else if err := e.store.UpdateAttempt(ctx, &step.Attempt); err != nil {
			return fmt.Errorf("persist attempt %s: %w", step.Attempt.ID, err)
		}
		*attempt = step.Attempt

		if step.Changed {
			e.logger.DebugContext(ctx, "call state changed",
				logger.AttemptID(attempt.ID),
				logger.Event(string(cur.Kind)),
				slog.String("from", string(step.From)),
				logger.CallState(string(attempt.State)),
			)
		}
		for _, eff := range step.Effects {
			e.perform(ctx, eff, *attempt)
		}
		pending = append(pending, step.FollowUps...)
	}
	return nil
}

func (e *Engine) lookup(ctx context.Context, ev Event) (*CallAttempt, error) {
	var (
		a   *CallAttempt
		err error
	)
	if ev.AttemptID != uuid.Nil {
		a, err = e.store.GetAttempt(ctx, ev.AttemptID)
	} else {
		a, err = e.store.GetAttemptByHandle(ctx, ev.CallHandle)
	}
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			e.logger.WarnContext(ctx, "event for unknown attempt",
				logger.AttemptID(ev.AttemptID),
				logger.CallHandle(ev.CallHandle),
				logger.Event(string(ev.Kind)),
			)
		}
		return nil, err
	}
	return a, nil
}

// finalize commits a terminal attempt together with its lead update, then
// frees the slot and hands the outcome to the dispatcher.
func (e *Engine) finalize(ctx context.Context, a CallAttempt) error {
	now := e.now()
	decision := e.policy.Decide(a.AttemptNumber, a.Outcome)
	update := PlanLeadUpdate(a, decision, now, e.window)

	if err := e.store.CompleteAttempt(ctx, &a, update); err != nil {
		if errors.Is(err, ErrAttemptNotActive) {
			e.releaseSlot(ctx, a.ID)
			return nil
		}
		// The slot stays held; the watchdog retries the terminal write.
		return fmt.Errorf("complete attempt %s: %w", a.ID, err)
	}
	e.releaseSlot(ctx, a.ID)

	if a.Discarded {
		decision = Decision{Action: ActionAbandon}
	}
	e.metrics.Outcome(a.Outcome, decision.Action)
	attrs := []any{
		logger.AttemptID(a.ID),
		logger.LeadID(a.LeadID),
		logger.AttemptNumber(a.AttemptNumber),
		logger.CallState(string(a.State)),
		logger.Outcome(string(a.Outcome)),
		slog.String("action", string(decision.Action)),
	}
	if d, ok := a.Duration(); ok {
		e.metrics.CallDuration(d.Seconds())
		attrs = append(attrs, logger.Duration(d))
	}
	if a.FailureReason != "" {
		attrs = append(attrs, slog.String("reason", a.FailureReason))
	}
	if a.Discarded {
		attrs = append(attrs, slog.Bool("discarded", true))
	}
	e.logger.InfoContext(ctx, "call attempt finished", attrs...)

	e.goEffect(ctx, "outcome", func(ctx context.Context) {
		e.outcomes.Dispatch(ctx, a, decision, update)
	})
	return nil
}

func (e *Engine) perform(ctx context.Context, eff Effect, a CallAttempt) {
	switch eff {
	case EffectPlaceCall:
		e.goEffect(ctx, string(eff), func(ctx context.Context) { e.placeCall(ctx, a) })
	case EffectStartConversation:
		e.goEffect(ctx, string(eff), func(ctx context.Context) { e.startConversation(ctx, a) })
	default:
		e.logger.ErrorContext(ctx, "unknown effect", slog.String("effect", string(eff)))
	}
}

func (e *Engine) placeCall(ctx context.Context, a CallAttempt) {
	handle, err := e.telephony.PlaceCall(ctx, PlaceCallRequest{
		AttemptID:   a.ID,
		LeadID:      a.LeadID,
		Phone:       a.Phone,
		RingTimeout: e.cfg.CallSetupTimeout,
	})
	if err != nil {
		e.metrics.EffectError(string(EffectPlaceCall))
		e.logger.WarnContext(ctx, "call placement failed",
			logger.AttemptID(a.ID),
			logger.LeadID(a.LeadID),
			logger.Error(err),
		)
		e.post(ctx, Event{Kind: EventPlacementFailed, AttemptID: a.ID, At: e.now(), Reason: err.Error()})
		return
	}
	e.post(ctx, Event{Kind: EventHandleAssigned, AttemptID: a.ID, CallHandle: handle, At: e.now()})
}

func (e *Engine) startConversation(ctx context.Context, a CallAttempt) {
	err := e.conversation.StartConversation(ctx, ConversationRequest{
		AttemptID:  a.ID,
		CallHandle: a.CallHandle,
		Lead:       e.outcomes.leadContext(ctx, a),
	})
	if err != nil {
		e.metrics.EffectError(string(EffectStartConversation))
		e.logger.WarnContext(ctx, "conversation hand-off failed",
			logger.AttemptID(a.ID),
			logger.Error(err),
		)
		e.post(ctx, Event{Kind: EventConversationFailed, AttemptID: a.ID, At: e.now(), Reason: err.Error()})
	}
}

// post submits an engine-generated event, logging instead of returning errors.
func (e *Engine) post(ctx context.Context, ev Event) {
	if err := e.Submit(ctx, ev); err != nil {
		level := slog.LevelError
		if errors.Is(err, ErrEngineStopped) || ctx.Err() != nil {
			level = slog.LevelDebug
		}
		e.logger.Log(ctx, level, "event not applied",
			logger.AttemptID(ev.AttemptID),
			logger.Event(string(ev.Kind)),
			logger.Error(err),
		)
	}
}

// goEffect runs fn in a tracked goroutine. Nothing new starts once Run is
// shutting down.
func (e *Engine) goEffect(ctx context.Context, name string, fn func(context.Context)) {
	e.effectsMu.Lock()
	defer e.effectsMu.Unlock()
	if e.stopping.Load() {
		return
	}

	e.effects.Add(1)
	go func() {
		defer e.effects.Done()
		defer func() {
			if r := recover(); r != nil {
				e.metrics.EffectError(name)
				e.logger.ErrorContext(ctx, "effect panicked",
					slog.String("effect", name),
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		fn(ctx)
	}()
}

func (e *Engine) bindSlot(attemptID uuid.UUID, s Slot) {
	e.slotsMu.Lock()
	e.slots[attemptID] = s
	e.slotsMu.Unlock()
}

// releaseSlot frees the slot bound to the attempt exactly once.
func (e *Engine) releaseSlot(ctx context.Context, attemptID uuid.UUID) {
	e.slotsMu.Lock()
	s, ok := e.slots[attemptID]
	delete(e.slots, attemptID)
	e.slotsMu.Unlock()

	if !ok {
		return
	}
	if err := e.admission.Release(s); err != nil {
		e.logger.ErrorContext(ctx, "slot release failed", logger.AttemptID(attemptID), logger.Error(err))
	}
	e.metrics.SetActive(e.admission.Active())
}
