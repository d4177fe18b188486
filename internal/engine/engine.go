/*
Engine drives the strategy pipeline from either streaming discipline.

# Modes
  - backtest: the feed produces events synchronously by direct call, in
    non-decreasing timestamp order; each event is fully dispatched for every
    strategy before the feed regains control. Identical inputs yield an
    identical ordered sequence of order submissions.
  - live: feeds run on their own goroutines and publish onto a bounded bus;
    the engine is the bus's sole consumer and dispatches events one at a
    time in arrival order, with no reordering.

# States

	Idle -> Running -> Draining -> Stopped

plus a terminal Failed reachable from Running/Draining. An EndOfStreamEvent
moves Running to Draining; the queue draining empty moves Draining to
Stopped. A host cancellation stops the engine at the next event boundary;
no stage call is ever interrupted mid-flight.
*/
package engine

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/broker"
	"main/internal/bus"
	"main/internal/event"
	"main/internal/feed"
	"main/internal/fund"
	"main/internal/market"
	"main/internal/obs"
	"main/internal/strategy"
)

// State is the engine lifecycle state.
type State uint32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode selects the streaming discipline.
type Mode uint16

const (
	ModeUnknown Mode = iota
	ModeBacktest
	ModeLive
)

func (m Mode) String() string {
	switch m {
	case ModeBacktest:
		return "backtest"
	case ModeLive:
		return "live"
	default:
		return "unknown"
	}
}

// Config wires the engine's collaborators together.
type Config struct {
	Feed   feed.Feed
	Fund   *fund.Fund
	Broker broker.Broker

	// BusCapacity bounds the live-mode queue. Defaults to 1024.
	BusCapacity int

	// Metrics is optional; nil disables collection.
	Metrics *obs.Metrics
}

// RunConfig selects mode and, for backtests, the dispatch window. Events
// before Start still feed the market store as warm-up history; events
// after End are ignored.
type RunConfig struct {
	Mode  Mode
	Start time.Time
	End   time.Time
}

// Engine coordinates feed, fund, and broker for exactly one run.
type Engine struct {
	feed        feed.Feed
	fund        *fund.Fund
	broker      broker.Broker
	busCapacity int
	metrics     *obs.Metrics

	market *market.Store
	state  uint32

	// run-scoped, touched only on the consumer goroutine
	bus            *bus.Bus
	rcfg           RunConfig
	contexts       map[string]*strategy.Context
	allocations    map[string]decimal.Decimal
	failure        error
	events         uint64
	lastDispatched time.Time
	equityPeak     decimal.Decimal
	maxDrawdown    decimal.Decimal
	perStrategy    map[string]*strategyTally
}

type strategyTally struct {
	orders      int
	rejections  int
	stageErrors int
}

// New validates the wiring and builds an engine. An engine runs once.
func New(cfg Config) (*Engine, error) {
	if cfg.Feed == nil {
		return nil, errors.New("engine feed is nil")
	}
	if cfg.Fund == nil {
		return nil, errors.New("engine fund is nil")
	}
	if cfg.Broker == nil {
		return nil, errors.New("engine broker is nil")
	}
	if cfg.BusCapacity <= 0 {
		cfg.BusCapacity = 1024
	}
	return &Engine{
		feed:        cfg.Feed,
		fund:        cfg.Fund,
		broker:      cfg.Broker,
		busCapacity: cfg.BusCapacity,
		metrics:     cfg.Metrics,
		market:      market.NewStore(),
		contexts:    make(map[string]*strategy.Context),
		allocations: make(map[string]decimal.Decimal),
		perStrategy: make(map[string]*strategyTally),
	}, nil
}

// State reports the current lifecycle state.
func (e *Engine) State() State {
	return State(atomic.LoadUint32(&e.state))
}

func (e *Engine) setState(s State) {
	atomic.StoreUint32(&e.state, uint32(s))
}

// Market exposes the engine-owned market store.
func (e *Engine) Market() *market.Store { return e.market }

// Run executes one full engine lifecycle and returns the run result. On a
// backtest stage failure the error carries the precise cause and the last
// successfully dispatched event's timestamp.
func (e *Engine) Run(ctx context.Context, rcfg RunConfig) (*RunResult, error) {
	if rcfg.Mode != ModeBacktest && rcfg.Mode != ModeLive {
		return nil, errors.Errorf("unknown run mode: %d", rcfg.Mode)
	}
	if !atomic.CompareAndSwapUint32(&e.state, uint32(StateIdle), uint32(StateRunning)) {
		return nil, errors.Errorf("engine already ran, state: %s", e.State())
	}
	e.rcfg = rcfg

	if err := e.fund.Allocate(); err != nil {
		e.setState(StateFailed)
		return nil, errors.Wrap(err, "fund allocation")
	}
	if err := e.broker.Connect(); err != nil {
		e.setState(StateFailed)
		return nil, errors.Wrap(err, "broker connect")
	}
	defer func() { _ = e.broker.Disconnect() }()
	if err := e.feed.Connect(); err != nil {
		e.setState(StateFailed)
		return nil, errors.Wrap(err, "feed connect")
	}
	defer func() { _ = e.feed.Disconnect() }()

	switch rcfg.Mode {
	case ModeBacktest:
		e.bus = bus.NewSynchronous()
	default:
		e.bus = bus.New(e.busCapacity)
	}
	if err := e.bus.Subscribe(e.consume); err != nil {
		e.setState(StateFailed)
		return nil, err
	}
	e.feed.Initialize(e.bus)

	for _, entry := range e.fund.Entries() {
		name := entry.Strategy.Name()
		e.contexts[name] = &strategy.Context{
			Market:    e.market,
			Portfolio: entry.Portfolio,
			Bus:       e.bus,
		}
		e.allocations[name] = entry.Portfolio.Cash()
		e.perStrategy[name] = &strategyTally{}
	}
	e.equityPeak = e.fund.Capital()
	e.maxDrawdown = decimal.Zero

	logs.Infof("engine run: mode=%s strategies=%d capital=%s",
		rcfg.Mode, len(e.fund.Entries()), e.fund.Capital())

	var runErr error
	switch rcfg.Mode {
	case ModeBacktest:
		runErr = e.runBacktest(ctx)
	default:
		runErr = e.runLive(ctx)
	}
	if runErr != nil {
		return nil, runErr
	}
	return e.buildResult(), nil
}

// runBacktest drives the feed by direct call on this goroutine. The
// synchronous bus delivers every event into consume before the feed reads
// the next one.
func (e *Engine) runBacktest(ctx context.Context) error {
	streamErr := e.feed.Stream(ctx)

	if e.failure != nil {
		e.setState(StateFailed)
		return errors.Wrapf(e.failure, "backtest failed, last dispatched event at %s",
			e.lastDispatched.Format(time.RFC3339))
	}
	if streamErr != nil {
		e.setState(StateFailed)
		return errors.Wrap(streamErr, "backtest feed")
	}
	e.setState(StateStopped)
	return nil
}

// runLive starts the feed on its own goroutine and drains the bus as the
// sole consumer until end of stream or host cancellation.
func (e *Engine) runLive(ctx context.Context) error {
	feed.Start(ctx, e.feed)

	err := e.bus.Run(ctx)
	if err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, context.DeadlineExceeded) {
		e.setState(StateFailed)
		return errors.Wrap(err, "live consumer")
	}
	e.bus.Close()
	e.setState(StateStopped)
	return nil
}

// consume handles one delivered event. It runs entirely on the consumer
// goroutine: the feed goroutine in backtest mode, the bus Run goroutine in
// live mode. No event for a strategy is dispatched while a previous one is
// in flight.
func (e *Engine) consume(ev event.Event) {
	e.metrics.ObserveEvent(ev.Kind())

	switch ev := ev.(type) {
	case *event.MarketEvent:
		if e.State() != StateRunning {
			logs.Warnf("drop market event at %s: engine %s", ev.At.Format(time.RFC3339), e.State())
			return
		}
		e.dispatchAll(ev)
	case *event.EndOfStreamEvent:
		logs.Infof("end of stream at %s: %s", ev.At.Format(time.RFC3339), ev.Reason)
		if e.State() == StateRunning {
			e.setState(StateDraining)
		}
		e.bus.Close()
		if e.rcfg.Mode == ModeBacktest && e.State() == StateDraining {
			// Synchronous delivery leaves nothing in flight to drain.
			e.setState(StateStopped)
		}
	case *event.ControlEvent:
		if ev.Signal == event.ControlStop {
			logs.Info("stop requested")
			if e.State() == StateRunning {
				e.setState(StateDraining)
			}
			e.bus.Close()
			if e.rcfg.Mode == ModeBacktest && e.State() == StateDraining {
				e.setState(StateStopped)
			}
		}
	}
}

// dispatchAll runs one market event through every strategy's chain and
// routes the resulting orders.
func (e *Engine) dispatchAll(ev *event.MarketEvent) {
	e.market.Append(ev.Bars)
	if !e.rcfg.Start.IsZero() && ev.At.Before(e.rcfg.Start) {
		return // warm-up history only
	}
	if !e.rcfg.End.IsZero() && ev.At.After(e.rcfg.End) {
		return
	}

	for _, entry := range e.fund.Entries() {
		if e.State() == StateFailed {
			return
		}
		name := entry.Strategy.Name()

		started := time.Now()
		orders, err := entry.Strategy.Dispatch(e.contexts[name], ev)
		e.metrics.ObserveDispatch(time.Since(started))
		if err != nil {
			e.onDispatchError(name, ev, err)
			continue
		}
		if len(orders) == 0 {
			continue
		}

		accepted, rejected, err := e.fund.Route(e.broker, entry, orders, e.market.LastPrice)
		e.metrics.AddOrders(accepted, rejected)
		tally := e.perStrategy[name]
		tally.orders += accepted
		tally.rejections += rejected
		if err != nil {
			e.onDispatchError(name, ev, err)
		}
	}
	if e.State() == StateFailed {
		return
	}

	e.events++
	e.lastDispatched = ev.At
	e.trackEquity()
}

// onDispatchError applies the mode's failure semantics: a backtest aborts
// because determinism cannot be partially preserved; a live run isolates
// the offending strategy for this event only.
func (e *Engine) onDispatchError(name string, ev *event.MarketEvent, err error) {
	if e.rcfg.Mode == ModeBacktest {
		e.failure = err
		e.setState(StateFailed)
		e.bus.Close()
		return
	}
	logs.Errorf("strategy %s isolated for event at %s: %+v", name, ev.At.Format(time.RFC3339), err)
	e.metrics.IncStageError(name)
	e.perStrategy[name].stageErrors++
}

func (e *Engine) trackEquity() {
	equity := e.fund.TotalEquity(e.market.LastPrice)
	if equity.GreaterThan(e.equityPeak) {
		e.equityPeak = equity
	}
	if e.equityPeak.IsPositive() {
		drawdown := e.equityPeak.Sub(equity).Div(e.equityPeak)
		if drawdown.GreaterThan(e.maxDrawdown) {
			e.maxDrawdown = drawdown
		}
	}
}
