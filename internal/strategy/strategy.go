/*
Strategy composes the five-stage decision pipeline.

# Chain

	universe selection -> alpha -> construction -> risk -> execution

Each stage is an interface with interchangeable implementations, resolved
at strategy construction. A stage returning an empty mapping short-circuits
the rest of the chain for that event. Every instrument a stage references
must be a member of the strategy's current universe; a violation is a hard
error caught before the order reaches the broker.
*/
package strategy

import (
	stderrors "errors"

	"github.com/yanun0323/errors"

	"main/internal/bus"
	"main/internal/event"
	"main/internal/market"
	"main/internal/portfolio"
	"main/internal/schema"
)

// Context is the read handle injected into every stage call. It references
// the shared market store, the strategy's portfolio view, and the one event
// bus; it holds no state of its own. Stages receive it as an explicit
// argument, so an unbound context cannot exist.
type Context struct {
	Market    *market.Store
	Portfolio portfolio.View
	Bus       *bus.Bus
}

// Universe returns the current instrument set. Re-queried by the engine on
// demand; implementations may cache.
type Universe interface {
	Select(c *Context) []schema.Instrument
}

// Alpha turns one market event into directional signals. It must not
// return entries for instruments it has no opinion on.
type Alpha interface {
	Signals(c *Context, ev *event.MarketEvent) (schema.Signals, error)
}

// Construction sizes signals into target quantities. Stateful
// implementations own their own de-duplication: re-applying history already
// acted upon must not double-size positions.
type Construction interface {
	Targets(c *Context, signals schema.Signals) (schema.Targets, error)
}

// Risk refines targets over the same domain, moving values only toward
// safety. It must never increase directional exposure beyond what a prior
// stage requested.
type Risk interface {
	Apply(c *Context, targets schema.Targets) (schema.Targets, error)
}

// Execution emits the orders needed to move current positions toward the
// post-risk targets, and an empty list when they already converge.
type Execution interface {
	Orders(c *Context, targets schema.Targets) ([]schema.OrderSpec, error)
}

var ErrNotInUniverse = stderrors.New("instrument not in strategy universe")

// Strategy is one named pipeline over the five stage kinds.
type Strategy struct {
	name         string
	universe     Universe
	alpha        Alpha
	construction Construction
	risk         Risk
	execution    Execution
}

// Config bundles the stages of a strategy.
type Config struct {
	Name         string
	Universe     Universe
	Alpha        Alpha
	Construction Construction
	Risk         Risk
	Execution    Execution
}

// New validates and builds a strategy. A missing stage is a configuration
// error, surfaced now rather than at dispatch time.
func New(cfg Config) (*Strategy, error) {
	if cfg.Name == "" {
		return nil, errors.New("strategy name is empty")
	}
	if cfg.Universe == nil {
		return nil, errors.Errorf("strategy %s: universe stage is nil", cfg.Name)
	}
	if cfg.Alpha == nil {
		return nil, errors.Errorf("strategy %s: alpha stage is nil", cfg.Name)
	}
	if cfg.Construction == nil {
		return nil, errors.Errorf("strategy %s: construction stage is nil", cfg.Name)
	}
	if cfg.Risk == nil {
		return nil, errors.Errorf("strategy %s: risk stage is nil", cfg.Name)
	}
	if cfg.Execution == nil {
		return nil, errors.Errorf("strategy %s: execution stage is nil", cfg.Name)
	}
	return &Strategy{
		name:         cfg.Name,
		universe:     cfg.Universe,
		alpha:        cfg.Alpha,
		construction: cfg.Construction,
		risk:         cfg.Risk,
		execution:    cfg.Execution,
	}, nil
}

func (s *Strategy) Name() string { return s.name }

// Dispatch runs one market event through the full stage chain and returns
// the resulting order specs. Dispatch for a given strategy is sequential:
// the engine never runs two events through the same strategy concurrently.
func (s *Strategy) Dispatch(c *Context, ev *event.MarketEvent) ([]schema.OrderSpec, error) {
	universe := s.universe.Select(c)
	member := make(map[schema.Instrument]struct{}, len(universe))
	for _, instrument := range universe {
		member[instrument] = struct{}{}
	}

	signals, err := s.alpha.Signals(c, ev)
	if err != nil {
		return nil, errors.Wrapf(err, "strategy %s: alpha", s.name)
	}
	if len(signals) == 0 {
		return nil, nil
	}
	for instrument, signal := range signals {
		if _, ok := member[instrument]; !ok {
			return nil, errors.Wrapf(ErrNotInUniverse, "strategy %s: signal for %s", s.name, instrument)
		}
		if err := signal.Validate(); err != nil {
			return nil, errors.Wrapf(err, "strategy %s: signal for %s", s.name, instrument)
		}
	}

	targets, err := s.construction.Targets(c, signals)
	if err != nil {
		return nil, errors.Wrapf(err, "strategy %s: construction", s.name)
	}
	if len(targets) == 0 {
		return nil, nil
	}
	for instrument := range targets {
		if _, ok := member[instrument]; !ok {
			return nil, errors.Wrapf(ErrNotInUniverse, "strategy %s: target for %s", s.name, instrument)
		}
	}

	limited, err := s.risk.Apply(c, targets)
	if err != nil {
		return nil, errors.Wrapf(err, "strategy %s: risk", s.name)
	}
	if len(limited) == 0 {
		return nil, nil
	}

	orders, err := s.execution.Orders(c, limited)
	if err != nil {
		return nil, errors.Wrapf(err, "strategy %s: execution", s.name)
	}
	for _, order := range orders {
		if _, ok := member[order.Instrument]; !ok {
			return nil, errors.Wrapf(ErrNotInUniverse, "strategy %s: order for %s", s.name, order.Instrument)
		}
	}
	return orders, nil
}
