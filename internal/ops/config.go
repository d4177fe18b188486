package ops

import (
	"context"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"main/internal/broker"
	"main/internal/feed"
	"main/internal/fund"
	"main/internal/schema"
	"main/internal/strategy"
	"main/pkg/conn"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Fund       FundConfig       `json:"fund"`
	Strategies []StrategyConfig `json:"strategies"`
	Feed       FeedConfig       `json:"feed"`
	Broker     BrokerConfig     `json:"broker"`
	Engine     EngineConfig     `json:"engine"`
}

// FundConfig defines total capital and how it splits across strategies.
type FundConfig struct {
	Capital    string           `json:"capital"`
	Allocation AllocationConfig `json:"allocation"`
}

// AllocationConfig selects the allocation policy.
type AllocationConfig struct {
	Policy  string            `json:"policy"`
	Weights map[string]string `json:"weights"`
}

// StrategyConfig defines one strategy's stage chain.
type StrategyConfig struct {
	Name         string             `json:"name"`
	Universe     UniverseConfig     `json:"universe"`
	Alpha        AlphaConfig        `json:"alpha"`
	Construction ConstructionConfig `json:"construction"`
	Risk         RiskConfig         `json:"risk"`
	Execution    ExecutionConfig    `json:"execution"`
}

// InstrumentConfig describes one tradeable instrument.
type InstrumentConfig struct {
	Symbol     string `json:"symbol"`
	Exchange   string `json:"exchange"`
	AssetClass string `json:"assetClass"`
}

// UniverseConfig selects the universe stage.
type UniverseConfig struct {
	Kind        string             `json:"kind"`
	Instruments []InstrumentConfig `json:"instruments"`
}

// AlphaConfig selects the alpha stage.
type AlphaConfig struct {
	Kind string `json:"kind"`
	Fast int    `json:"fast"`
	Slow int    `json:"slow"`
}

// ConstructionConfig selects the construction stage.
type ConstructionConfig struct {
	Kind    string `json:"kind"`
	Reserve string `json:"reserve"`
	Once    bool   `json:"once"`
}

// RiskConfig selects the risk stage.
type RiskConfig struct {
	Kind        string `json:"kind"`
	MaxPosition string `json:"maxPosition"`
}

// ExecutionConfig selects the execution stage.
type ExecutionConfig struct {
	Kind string `json:"kind"`
}

// FeedConfig selects the event source.
type FeedConfig struct {
	Kind     string              `json:"kind"`
	CSV      *CSVFeedConfig      `json:"csv"`
	Postgres *PostgresFeedConfig `json:"postgres"`
	Binance  *BinanceFeedConfig  `json:"binance"`
}

// CSVFeedConfig configures file playback.
type CSVFeedConfig struct {
	Path  string  `json:"path"`
	Speed float64 `json:"speed"`
}

// PostgresFeedConfig configures database playback.
type PostgresFeedConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Password  string `json:"password"`
	Database  string `json:"database"`
	SSLMode   string `json:"sslMode"`
	Start     string `json:"start"`
	End       string `json:"end"`
	BatchSize int    `json:"batchSize"`
}

// BinanceFeedConfig configures the live trade stream.
type BinanceFeedConfig struct {
	URL     string                      `json:"url"`
	Symbols map[string]InstrumentConfig `json:"symbols"`
}

// BrokerConfig selects the order destination.
type BrokerConfig struct {
	Kind string `json:"kind"`
}

// EngineConfig captures engine tunables.
type EngineConfig struct {
	BusCapacity int `json:"busCapacity"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Fund        *fund.Fund
	Feed        feed.Feed
	Broker      broker.Broker
	BusCapacity int
}

// Load reads a JSON config file and resolves every component. The context
// only serves feeds that dial out on construction.
func Load(ctx context.Context, path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrap(err, "read config")
	}
	var cfg FileConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config")
	}

	f, err := buildFund(cfg.Fund, cfg.Strategies)
	if err != nil {
		return Loaded{}, err
	}
	fd, err := buildFeed(ctx, cfg.Feed)
	if err != nil {
		return Loaded{}, err
	}
	br, err := buildBroker(cfg.Broker)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Fund:        f,
		Feed:        fd,
		Broker:      br,
		BusCapacity: cfg.Engine.BusCapacity,
	}, nil
}

func buildFund(cfg FundConfig, strategies []StrategyConfig) (*fund.Fund, error) {
	capital, err := parseDecimal(cfg.Capital, "fund capital")
	if err != nil {
		return nil, err
	}
	policy, err := buildPolicy(cfg.Allocation)
	if err != nil {
		return nil, err
	}
	built := make([]*strategy.Strategy, 0, len(strategies))
	for _, sc := range strategies {
		s, err := buildStrategy(sc)
		if err != nil {
			return nil, err
		}
		built = append(built, s)
	}
	return fund.New(capital, policy, built...)
}

func buildPolicy(cfg AllocationConfig) (fund.Policy, error) {
	switch cfg.Policy {
	case "", "equal":
		return fund.EqualAllocation{}, nil
	case "weighted":
		weights := make(map[string]decimal.Decimal, len(cfg.Weights))
		for name, raw := range cfg.Weights {
			w, err := parseDecimal(raw, "allocation weight for "+name)
			if err != nil {
				return nil, err
			}
			weights[name] = w
		}
		return fund.NewWeightedAllocation(weights)
	default:
		return nil, errors.Errorf("unknown allocation policy: %s", cfg.Policy)
	}
}

func buildStrategy(cfg StrategyConfig) (*strategy.Strategy, error) {
	universe, err := buildUniverse(cfg.Name, cfg.Universe)
	if err != nil {
		return nil, err
	}
	alpha, err := buildAlpha(cfg.Name, cfg.Alpha)
	if err != nil {
		return nil, err
	}
	construction, err := buildConstruction(cfg.Name, cfg.Construction)
	if err != nil {
		return nil, err
	}
	risk, err := buildRisk(cfg.Name, cfg.Risk)
	if err != nil {
		return nil, err
	}
	execution, err := buildExecution(cfg.Name, cfg.Execution)
	if err != nil {
		return nil, err
	}
	return strategy.New(strategy.Config{
		Name:         cfg.Name,
		Universe:     universe,
		Alpha:        alpha,
		Construction: construction,
		Risk:         risk,
		Execution:    execution,
	})
}

func buildUniverse(name string, cfg UniverseConfig) (strategy.Universe, error) {
	switch cfg.Kind {
	case "", "static":
		if len(cfg.Instruments) == 0 {
			return nil, errors.Errorf("strategy %s: static universe has no instruments", name)
		}
		instruments := make([]schema.Instrument, 0, len(cfg.Instruments))
		for _, ic := range cfg.Instruments {
			instrument, err := resolveInstrument(ic)
			if err != nil {
				return nil, errors.Wrapf(err, "strategy %s universe", name)
			}
			instruments = append(instruments, instrument)
		}
		return strategy.NewStatic(instruments...), nil
	default:
		return nil, errors.Errorf("strategy %s: unknown universe kind: %s", name, cfg.Kind)
	}
}

func buildAlpha(name string, cfg AlphaConfig) (strategy.Alpha, error) {
	switch cfg.Kind {
	case "buy_and_hold":
		return strategy.NewBuyAndHold(), nil
	case "ma_crossover":
		return strategy.NewMovingAverageCrossover(cfg.Fast, cfg.Slow)
	default:
		return nil, errors.Errorf("strategy %s: unknown alpha kind: %s", name, cfg.Kind)
	}
}

func buildConstruction(name string, cfg ConstructionConfig) (strategy.Construction, error) {
	switch cfg.Kind {
	case "", "equal_weight":
		opts := make([]strategy.EqualWeightOption, 0, 2)
		if cfg.Reserve != "" {
			reserve, err := parseDecimal(cfg.Reserve, "construction reserve")
			if err != nil {
				return nil, errors.Wrapf(err, "strategy %s", name)
			}
			opts = append(opts, strategy.WithReserve(reserve))
		}
		if cfg.Once {
			opts = append(opts, strategy.WithOnce())
		}
		return strategy.NewEqualWeight(opts...)
	default:
		return nil, errors.Errorf("strategy %s: unknown construction kind: %s", name, cfg.Kind)
	}
}

func buildRisk(name string, cfg RiskConfig) (strategy.Risk, error) {
	switch cfg.Kind {
	case "", "position_limit":
		raw := cfg.MaxPosition
		if raw == "" {
			raw = "1"
		}
		maxPosition, err := parseDecimal(raw, "risk maxPosition")
		if err != nil {
			return nil, errors.Wrapf(err, "strategy %s", name)
		}
		return strategy.NewPositionLimit(maxPosition)
	default:
		return nil, errors.Errorf("strategy %s: unknown risk kind: %s", name, cfg.Kind)
	}
}

func buildExecution(name string, cfg ExecutionConfig) (strategy.Execution, error) {
	switch cfg.Kind {
	case "", "immediate":
		return strategy.NewImmediate(), nil
	default:
		return nil, errors.Errorf("strategy %s: unknown execution kind: %s", name, cfg.Kind)
	}
}

func buildFeed(ctx context.Context, cfg FeedConfig) (feed.Feed, error) {
	switch cfg.Kind {
	case "csv":
		if cfg.CSV == nil {
			return nil, errors.New("csv feed config is missing")
		}
		return feed.NewCSVFeed(feed.CSVConfig{
			Path:  cfg.CSV.Path,
			Speed: cfg.CSV.Speed,
		})
	case "postgres":
		if cfg.Postgres == nil {
			return nil, errors.New("postgres feed config is missing")
		}
		pc := cfg.Postgres
		start, err := parseTime(pc.Start, "postgres feed start")
		if err != nil {
			return nil, err
		}
		end, err := parseTime(pc.End, "postgres feed end")
		if err != nil {
			return nil, err
		}
		return feed.NewPostgresFeed(feed.PostgresConfig{
			Conn: conn.Option{
				Host:     pc.Host,
				Port:     pc.Port,
				User:     pc.User,
				Password: pc.Password,
				Database: pc.Database,
				SSLMode:  pc.SSLMode,
			},
			Start:     start,
			End:       end,
			BatchSize: pc.BatchSize,
		}), nil
	case "binance":
		if cfg.Binance == nil {
			return nil, errors.New("binance feed config is missing")
		}
		symbols := make(map[string]schema.Instrument, len(cfg.Binance.Symbols))
		for stream, ic := range cfg.Binance.Symbols {
			instrument, err := resolveInstrument(ic)
			if err != nil {
				return nil, errors.Wrapf(err, "binance symbol %s", stream)
			}
			symbols[stream] = instrument
		}
		return feed.NewBinanceFeed(ctx, feed.BinanceConfig{
			URL:     cfg.Binance.URL,
			Symbols: symbols,
		})
	default:
		return nil, errors.Errorf("unknown feed kind: %s", cfg.Kind)
	}
}

func buildBroker(cfg BrokerConfig) (broker.Broker, error) {
	switch cfg.Kind {
	case "", "simulated":
		return broker.NewSimulated(nil), nil
	default:
		return nil, errors.Errorf("unknown broker kind: %s", cfg.Kind)
	}
}

func resolveInstrument(cfg InstrumentConfig) (schema.Instrument, error) {
	if cfg.Symbol == "" {
		return schema.Instrument{}, errors.New("instrument symbol is empty")
	}
	class := schema.ParseAssetClass(cfg.AssetClass)
	if class == schema.AssetClassUnknown {
		return schema.Instrument{}, errors.Errorf("unknown asset class: %s", cfg.AssetClass)
	}
	return schema.Instrument{
		Symbol:     cfg.Symbol,
		Exchange:   cfg.Exchange,
		AssetClass: class,
	}, nil
}

func parseDecimal(raw, what string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "invalid %s: %q", what, raw)
	}
	return d, nil
}

func parseTime(raw, what string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid %s: %q", what, raw)
	}
	return t, nil
}
