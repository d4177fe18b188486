package strategy

import (
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/event"
	"main/internal/schema"
)

var (
	strengthLong   = decimal.NewFromInt(1)
	strengthShort  = decimal.NewFromInt(-1)
	fullConfidence = decimal.NewFromInt(1)
)

// BuyAndHold emits a maximum-strength long signal for every instrument in
// every market event. Paired with a once-only construction stage it buys on
// first sight and holds.
type BuyAndHold struct{}

func NewBuyAndHold() *BuyAndHold { return &BuyAndHold{} }

func (a *BuyAndHold) Signals(_ *Context, ev *event.MarketEvent) (schema.Signals, error) {
	signals := make(schema.Signals, len(ev.Bars))
	for _, bar := range ev.Bars {
		signals[bar.Instrument] = schema.Signal{
			Instrument: bar.Instrument,
			Time:       ev.At,
			Kind:       schema.SignalKindTechnical,
			Source:     "buy_and_hold",
			Strength:   strengthLong,
			Confidence: fullConfidence,
		}
	}
	return signals, nil
}

// MovingAverageCrossover signals long on a golden cross of the fast SMA
// over the slow SMA and short on the death cross. It keeps a ring buffer
// per instrument, updated from event bars; no entry is emitted for
// instruments without a cross (no neutral padding).
type MovingAverageCrossover struct {
	fast int
	slow int

	windows map[schema.Instrument]*smaWindow
}

type smaWindow struct {
	prices []decimal.Decimal
	head   int
	count  int

	prevFast decimal.Decimal
	prevSlow decimal.Decimal
	primed   bool
}

// NewMovingAverageCrossover builds the stage; fast must be shorter than
// slow.
func NewMovingAverageCrossover(fast, slow int) (*MovingAverageCrossover, error) {
	if fast <= 0 || slow <= 0 || fast >= slow {
		return nil, errors.Errorf("invalid sma periods: fast=%d slow=%d", fast, slow)
	}
	return &MovingAverageCrossover{
		fast:    fast,
		slow:    slow,
		windows: make(map[schema.Instrument]*smaWindow),
	}, nil
}

func (a *MovingAverageCrossover) Signals(_ *Context, ev *event.MarketEvent) (schema.Signals, error) {
	signals := make(schema.Signals)
	for _, bar := range ev.Bars {
		w := a.windows[bar.Instrument]
		if w == nil {
			w = &smaWindow{prices: make([]decimal.Decimal, a.slow)}
			a.windows[bar.Instrument] = w
		}

		w.prices[w.head] = bar.Close
		w.head = (w.head + 1) % a.slow
		if w.count < a.slow {
			w.count++
		}
		if w.count < a.slow {
			continue
		}

		fast := w.average(a.fast, a.slow)
		slow := w.average(a.slow, a.slow)
		if !w.primed {
			w.prevFast, w.prevSlow, w.primed = fast, slow, true
			continue
		}

		var strength decimal.Decimal
		switch {
		case w.prevFast.LessThanOrEqual(w.prevSlow) && fast.GreaterThan(slow):
			strength = strengthLong
		case w.prevFast.GreaterThanOrEqual(w.prevSlow) && fast.LessThan(slow):
			strength = strengthShort
		}
		w.prevFast, w.prevSlow = fast, slow
		if strength.IsZero() {
			continue
		}

		signals[bar.Instrument] = schema.Signal{
			Instrument: bar.Instrument,
			Time:       ev.At,
			Kind:       schema.SignalKindTechnical,
			Source:     "ma_crossover",
			Strength:   strength,
			Confidence: fullConfidence,
		}
	}
	return signals, nil
}

// average computes the SMA of the newest n prices in a window of capacity
// cap. Callers guarantee the window is full.
func (w *smaWindow) average(n, capacity int) decimal.Decimal {
	sum := decimal.Zero
	for i := 1; i <= n; i++ {
		idx := (w.head - i + capacity) % capacity
		sum = sum.Add(w.prices[idx])
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
