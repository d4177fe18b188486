package feed

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/bus"
	"main/internal/event"
	"main/internal/schema"
)

// CSVConfig controls the historical CSV feed.
type CSVConfig struct {
	Path string

	// Speed paces playback relative to bar timestamps: 1 is real time,
	// 0 disables pacing (as fast as the consumer allows).
	Speed float64
}

// CSVFeed replays historical bars from a CSV file in strictly
// non-decreasing timestamp order. Rows sharing a timestamp are grouped
// into one MarketEvent. It is the single synchronous producer backtests
// need for deterministic ordering.
//
// Expected header: time,symbol,exchange,asset_class,open,high,low,close,volume
// with time in RFC 3339.
type CSVFeed struct {
	cfg CSVConfig
	bus *bus.Bus
}

// NewCSVFeed validates the config and builds the feed.
func NewCSVFeed(cfg CSVConfig) (*CSVFeed, error) {
	if cfg.Path == "" {
		return nil, errors.New("csv feed path is empty")
	}
	if cfg.Speed < 0 {
		return nil, errors.Errorf("csv feed speed must be >= 0, got %f", cfg.Speed)
	}
	return &CSVFeed{cfg: cfg}, nil
}

func (f *CSVFeed) Initialize(b *bus.Bus) { f.bus = b }

// File sources have no external connection.
func (f *CSVFeed) Connect() error    { return nil }
func (f *CSVFeed) Disconnect() error { return nil }
func (f *CSVFeed) IsConnected() bool { return true }

// Stream reads the file and publishes one MarketEvent per timestamp group,
// then exactly one EndOfStreamEvent.
func (f *CSVFeed) Stream(ctx context.Context) error {
	if f.bus == nil {
		return errors.New("csv feed not initialized")
	}

	lastTs := time.Now().UTC()
	reason := "csv exhausted"
	defer func() {
		if err := f.bus.Publish(&event.EndOfStreamEvent{At: lastTs, Reason: reason}); err != nil {
			// Shutdown race; the engine already stopped consuming.
			_ = err
		}
	}()

	file, err := os.Open(f.cfg.Path)
	if err != nil {
		reason = "csv open failed"
		return errors.Wrapf(err, "open %s", f.cfg.Path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil { // header
		reason = "csv header read failed"
		return errors.Wrap(err, "read csv header")
	}

	var pending []event.Bar
	var pendingTs time.Time
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		ev := &event.MarketEvent{At: pendingTs, Bars: pending}
		pending = nil
		lastTs = ev.At
		if err := f.bus.Publish(ev); err != nil {
			return err
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			reason = "stream canceled"
			return nil
		default:
		}

		record, err := reader.Read()
		if err == io.EOF {
			if err := flush(); err != nil {
				reason = "bus closed"
				return nil
			}
			return nil
		}
		if err != nil {
			reason = "csv read failed"
			return errors.Wrap(err, "read csv record")
		}

		bar, err := parseBar(record)
		if err != nil {
			reason = "csv parse failed"
			return err
		}
		if bar.Time.Before(pendingTs) {
			reason = "csv out of order"
			return errors.Errorf("bar time %s before %s", bar.Time, pendingTs)
		}

		if !bar.Time.Equal(pendingTs) {
			prev := pendingTs
			if err := flush(); err != nil {
				reason = "bus closed"
				return nil
			}
			if err := f.pace(ctx, prev, bar.Time); err != nil {
				reason = "stream canceled"
				return nil
			}
			pendingTs = bar.Time
		}
		pending = append(pending, bar)
	}
}

// pace sleeps for the scaled gap between consecutive event timestamps.
func (f *CSVFeed) pace(ctx context.Context, prev, next time.Time) error {
	if f.cfg.Speed <= 0 || prev.IsZero() {
		return nil
	}
	gap := time.Duration(float64(next.Sub(prev)) / f.cfg.Speed)
	if gap <= 0 {
		return nil
	}
	t := time.NewTimer(gap)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func parseBar(record []string) (event.Bar, error) {
	if len(record) < 9 {
		return event.Bar{}, errors.Errorf("csv record has %d fields, want 9", len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return event.Bar{}, errors.Wrapf(err, "parse time %q", record[0])
	}
	values := make([]decimal.Decimal, 5)
	for i, raw := range record[4:9] {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return event.Bar{}, errors.Wrapf(err, "parse field %q", raw)
		}
		values[i] = v
	}
	return event.Bar{
		Instrument: schema.Instrument{
			Symbol:     record[1],
			Exchange:   record[2],
			AssetClass: schema.ParseAssetClass(record[3]),
		},
		Time:   ts,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
