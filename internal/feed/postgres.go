package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"gorm.io/gorm"

	"main/internal/bus"
	"main/internal/event"
	"main/internal/schema"
	"main/pkg/conn"
)

// BarRow is the bars table layout consumed by the postgres feed.
type BarRow struct {
	ID         uint64    `gorm:"primaryKey"`
	Time       time.Time `gorm:"index"`
	Symbol     string
	Exchange   string
	AssetClass string
	Open       decimal.Decimal `gorm:"type:numeric"`
	High       decimal.Decimal `gorm:"type:numeric"`
	Low        decimal.Decimal `gorm:"type:numeric"`
	Close      decimal.Decimal `gorm:"type:numeric"`
	Volume     decimal.Decimal `gorm:"type:numeric"`
}

// TableName pins the gorm table name.
func (BarRow) TableName() string { return "bars" }

// PostgresConfig controls the postgres bar feed.
type PostgresConfig struct {
	Conn  conn.Option
	Start time.Time
	End   time.Time

	// BatchSize bounds each query; defaults to 1000.
	BatchSize int
}

// PostgresFeed replays historical bars stored in a postgres table, in
// timestamp order, grouping rows sharing a timestamp into one MarketEvent.
type PostgresFeed struct {
	cfg    PostgresConfig
	bus    *bus.Bus
	client *conn.Client
}

// NewPostgresFeed builds the feed; the connection opens on Connect.
func NewPostgresFeed(cfg PostgresConfig) *PostgresFeed {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	return &PostgresFeed{cfg: cfg}
}

func (f *PostgresFeed) Initialize(b *bus.Bus) { f.bus = b }

func (f *PostgresFeed) Connect() error {
	if f.client != nil {
		return nil
	}
	client, err := conn.New(f.cfg.Conn)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	f.client = client
	return nil
}

func (f *PostgresFeed) Disconnect() error {
	if f.client == nil {
		return nil
	}
	err := f.client.Close()
	f.client = nil
	return err
}

func (f *PostgresFeed) IsConnected() bool { return f.client != nil }

// Stream pages through the bars table and publishes grouped events, then
// exactly one EndOfStreamEvent.
func (f *PostgresFeed) Stream(ctx context.Context) error {
	if f.bus == nil {
		return errors.New("postgres feed not initialized")
	}
	if f.client == nil {
		return errors.New("postgres feed not connected")
	}

	lastTs := time.Now().UTC()
	reason := "postgres exhausted"
	defer func() {
		_ = f.bus.Publish(&event.EndOfStreamEvent{At: lastTs, Reason: reason})
	}()

	var pending []event.Bar
	var pendingTs time.Time
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		ev := &event.MarketEvent{At: pendingTs, Bars: pending}
		pending = nil
		lastTs = ev.At
		return f.bus.Publish(ev)
	}

	query := f.client.DB().WithContext(ctx).Model(&BarRow{}).
		Order("time asc, symbol asc, exchange asc")
	if !f.cfg.Start.IsZero() {
		query = query.Where("time >= ?", f.cfg.Start)
	}
	if !f.cfg.End.IsZero() {
		query = query.Where("time <= ?", f.cfg.End)
	}

	rows := make([]BarRow, 0, f.cfg.BatchSize)
	result := query.FindInBatches(&rows, f.cfg.BatchSize, func(_ *gorm.DB, _ int) error {
		for _, row := range rows {
			bar := rowToBar(row)
			if !bar.Time.Equal(pendingTs) {
				if err := flush(); err != nil {
					return err
				}
				pendingTs = bar.Time
			}
			pending = append(pending, bar)
		}
		return nil
	})
	if result.Error != nil {
		reason = "postgres query failed"
		return errors.Wrap(result.Error, "query bars")
	}
	if err := flush(); err != nil {
		reason = "bus closed"
		return nil
	}
	return nil
}

func rowToBar(row BarRow) event.Bar {
	return event.Bar{
		Instrument: schema.Instrument{
			Symbol:     row.Symbol,
			Exchange:   row.Exchange,
			AssetClass: schema.ParseAssetClass(row.AssetClass),
		},
		Time:   row.Time.UTC(),
		Open:   row.Open,
		High:   row.High,
		Low:    row.Low,
		Close:  row.Close,
		Volume: row.Volume,
	}
}
