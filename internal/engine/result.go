package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunResult summarizes a completed run.
type RunResult struct {
	Mode  Mode
	State State

	Events         uint64
	OrdersAccepted int
	OrdersRejected int

	InitialCapital decimal.Decimal
	FinalCapital   decimal.Decimal
	TotalReturn    decimal.Decimal
	MaxDrawdown    decimal.Decimal

	// LastEventTime is the last event that dispatched through the stages;
	// LastBarTime is the newest bar in the market store, which can be later
	// when trailing events fall outside the run window.
	LastEventTime time.Time
	LastBarTime   time.Time
	Strategies    map[string]StrategyResult
}

// StrategyResult is the per-strategy slice of a run.
type StrategyResult struct {
	Allocated   decimal.Decimal
	FinalEquity decimal.Decimal
	Orders      int
	Rejections  int
	StageErrors int
}

func (e *Engine) buildResult() *RunResult {
	r := &RunResult{
		Mode:           e.rcfg.Mode,
		State:          e.State(),
		Events:         e.events,
		InitialCapital: e.fund.Capital(),
		MaxDrawdown:    e.maxDrawdown,
		LastEventTime:  e.lastDispatched,
		Strategies:     make(map[string]StrategyResult, len(e.perStrategy)),
	}
	if ts, ok := e.market.LastTime(); ok {
		r.LastBarTime = ts
	}

	r.FinalCapital = e.fund.TotalEquity(e.market.LastPrice)
	if r.InitialCapital.IsPositive() {
		r.TotalReturn = r.FinalCapital.Sub(r.InitialCapital).Div(r.InitialCapital)
	}

	for _, entry := range e.fund.Entries() {
		name := entry.Strategy.Name()
		tally := e.perStrategy[name]
		r.OrdersAccepted += tally.orders
		r.OrdersRejected += tally.rejections
		r.Strategies[name] = StrategyResult{
			Allocated:   e.allocations[name],
			FinalEquity: entry.Portfolio.Equity(e.market.LastPrice),
			Orders:      tally.orders,
			Rejections:  tally.rejections,
			StageErrors: tally.stageErrors,
		}
	}
	return r
}

// Summary renders the result as a human readable report.
func (r *RunResult) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "run: mode=%s state=%s events=%d orders=%d rejections=%d\n",
		r.Mode, r.State, r.Events, r.OrdersAccepted, r.OrdersRejected)
	fmt.Fprintf(&sb, "capital: initial=%s final=%s return=%s%% max_drawdown=%s%%\n",
		r.InitialCapital.StringFixed(2), r.FinalCapital.StringFixed(2),
		r.TotalReturn.Mul(decimal.NewFromInt(100)).StringFixed(2),
		r.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2))
	if !r.LastEventTime.IsZero() {
		fmt.Fprintf(&sb, "last event: %s\n", r.LastEventTime.Format(time.RFC3339))
	}
	if !r.LastBarTime.IsZero() && !r.LastBarTime.Equal(r.LastEventTime) {
		fmt.Fprintf(&sb, "last bar: %s\n", r.LastBarTime.Format(time.RFC3339))
	}

	names := make([]string, 0, len(r.Strategies))
	for name := range r.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := r.Strategies[name]
		fmt.Fprintf(&sb, "strategy %s: allocated=%s equity=%s orders=%d rejections=%d",
			name, s.Allocated.StringFixed(2), s.FinalEquity.StringFixed(2), s.Orders, s.Rejections)
		if s.StageErrors != 0 {
			fmt.Fprintf(&sb, " stage_errors=%d", s.StageErrors)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
