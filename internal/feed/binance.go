package feed

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/ws"

	"main/internal/bus"
	"main/internal/event"
	"main/internal/schema"
)

const _binanceBaseWsUrl = "wss://stream.binance.com:9443/ws"

// BinanceConfig controls the live binance trade feed.
type BinanceConfig struct {
	// URL overrides the default stream endpoint, mainly for tests.
	URL string

	// Symbols maps binance stream symbols (e.g. "BTCUSDT") to the
	// instruments they represent.
	Symbols map[string]schema.Instrument
}

// BinanceFeed subscribes to binance trade streams and publishes each trade
// as a single-bar MarketEvent in arrival order. One goroutine owns the
// socket; the feed owns an isolated publish handle to the bus.
type BinanceFeed struct {
	cfg BinanceConfig
	bus *bus.Bus
	wss *ws.WebSocket

	connected bool
}

type binanceSubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

type binanceSubscribeResponse struct {
	ID     int64 `json:"id"`
	Result any   `json:"result"`
}

type binanceTrade struct {
	EventType string `json:"e"`
	EventTime int64  `json:"E"`
	Symbol    string `json:"s"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
	TradeTime int64  `json:"T"`
}

// NewBinanceFeed builds the live feed.
func NewBinanceFeed(ctx context.Context, cfg BinanceConfig) (*BinanceFeed, error) {
	if len(cfg.Symbols) == 0 {
		return nil, errors.New("binance feed has no symbols")
	}
	url := cfg.URL
	if url == "" {
		url = _binanceBaseWsUrl
	}
	return &BinanceFeed{
		cfg: cfg,
		wss: ws.New(ctx, url),
	}, nil
}

func (f *BinanceFeed) Initialize(b *bus.Bus) { f.bus = b }

func (f *BinanceFeed) Connect() error {
	if f.connected {
		return nil
	}
	if err := f.wss.Start(context.Background()); err != nil {
		return errors.Wrap(err, "start wss")
	}
	f.connected = true
	return nil
}

func (f *BinanceFeed) Disconnect() error {
	if !f.connected {
		return nil
	}
	f.wss.Close()
	f.connected = false
	return nil
}

func (f *BinanceFeed) IsConnected() bool { return f.connected }

// Stream subscribes the configured trade streams and pumps messages onto
// the bus until the context is done or the socket closes, then publishes
// exactly one EndOfStreamEvent.
func (f *BinanceFeed) Stream(ctx context.Context) error {
	if f.bus == nil {
		return errors.New("binance feed not initialized")
	}
	if !f.connected {
		return errors.New("binance feed not connected")
	}

	reason := "live stream closed"
	defer func() {
		_ = f.bus.Publish(&event.EndOfStreamEvent{At: time.Now().UTC(), Reason: reason})
	}()

	if err := f.subscribeTrades(ctx); err != nil {
		reason = "subscribe failed"
		return err
	}

	ch, cancel := f.wss.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			reason = "stream canceled"
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			trade, ok := ws.ReadMessage[binanceTrade](m)
			if !ok || trade.EventType != "trade" {
				continue
			}
			ev, err := f.tradeToEvent(trade)
			if err != nil {
				logs.Warnf("drop malformed trade: %+v", err)
				continue
			}
			if err := f.bus.Publish(ev); err != nil {
				if stderrors.Is(err, bus.ErrBusClosed) {
					reason = "bus closed"
					return nil
				}
				logs.Warnf("drop trade, bus full: %s", trade.Symbol)
			}
		}
	}
}

func (f *BinanceFeed) subscribeTrades(ctx context.Context) error {
	params := make([]string, 0, len(f.cfg.Symbols))
	for symbol := range f.cfg.Symbols {
		params = append(params, fmt.Sprintf("%s@trade", strings.ToLower(symbol)))
	}

	appendIntoRegister := true
	if err := f.wss.SendAndWait(ctx, ws.Sidecar{
		Sender: func(ctx context.Context, ws *ws.WebSocket) error {
			payload := binanceSubscribeRequest{
				Method: "SUBSCRIBE",
				Params: params,
				ID:     1,
			}
			if err := ws.WriteJSON(payload); err != nil {
				return errors.Wrap(err, "write subscribe payload").With("payload", payload)
			}
			return nil
		},
		Waiter: func(ctx context.Context, m ws.Message) (bool, error) {
			var resp binanceSubscribeResponse
			if err := m.Unmarshal(&resp); err != nil || resp.ID != 1 {
				return false, nil
			}
			if resp.Result != nil {
				return false, errors.Errorf("subscribe failed, err: %+v", resp.Result)
			}
			return true, nil
		},
	}, appendIntoRegister); err != nil {
		return errors.Wrap(err, "send and wait")
	}
	return nil
}

// tradeToEvent maps one trade tick to a single-bar market event.
func (f *BinanceFeed) tradeToEvent(trade binanceTrade) (*event.MarketEvent, error) {
	instrument, ok := f.cfg.Symbols[trade.Symbol]
	if !ok {
		return nil, errors.Errorf("unexpected symbol %s", trade.Symbol)
	}
	price, err := decimal.NewFromString(trade.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "parse price %q", trade.Price)
	}
	qty, err := decimal.NewFromString(trade.Quantity)
	if err != nil {
		return nil, errors.Wrapf(err, "parse qty %q", trade.Quantity)
	}
	ts := time.UnixMilli(trade.TradeTime).UTC()
	return &event.MarketEvent{
		At: ts,
		Bars: []event.Bar{{
			Instrument: instrument,
			Time:       ts,
			Open:       price,
			High:       price,
			Low:        price,
			Close:      price,
			Volume:     qty,
		}},
	}, nil
}
