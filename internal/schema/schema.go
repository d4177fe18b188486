package schema

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AssetClass groups instruments by the kind of security they represent.
type AssetClass uint16

const (
	AssetClassUnknown AssetClass = iota
	AssetClassStock
	AssetClassCrypto
	AssetClassFuture
	AssetClassForex
)

func (a AssetClass) String() string {
	switch a {
	case AssetClassStock:
		return "stock"
	case AssetClassCrypto:
		return "crypto"
	case AssetClassFuture:
		return "future"
	case AssetClassForex:
		return "forex"
	default:
		return "unknown"
	}
}

// ParseAssetClass resolves a textual asset class name.
func ParseAssetClass(s string) AssetClass {
	switch s {
	case "stock":
		return AssetClassStock
	case "crypto":
		return AssetClassCrypto
	case "future":
		return AssetClassFuture
	case "forex":
		return AssetClassForex
	default:
		return AssetClassUnknown
	}
}

// Instrument identifies a tradable security. It is a comparable value type
// and never mutated after creation; equality is structural so it can be
// used directly as a map key.
type Instrument struct {
	Symbol     string
	Exchange   string
	AssetClass AssetClass
}

// Stock builds a stock instrument on the given exchange.
func Stock(symbol, exchange string) Instrument {
	return Instrument{Symbol: symbol, Exchange: exchange, AssetClass: AssetClassStock}
}

// Crypto builds a crypto instrument on the given exchange.
func Crypto(symbol, exchange string) Instrument {
	return Instrument{Symbol: symbol, Exchange: exchange, AssetClass: AssetClassCrypto}
}

func (i Instrument) String() string {
	if i.Exchange == "" {
		return i.Symbol
	}
	return i.Symbol + "." + i.Exchange
}

// SortInstruments orders instruments by symbol then exchange. Stages that
// walk instrument maps use this to keep their output order deterministic.
func SortInstruments(list []Instrument) {
	sort.Slice(list, func(a, b int) bool {
		if list[a].Symbol != list[b].Symbol {
			return list[a].Symbol < list[b].Symbol
		}
		return list[a].Exchange < list[b].Exchange
	})
}

// Targets maps instruments to desired signed position quantities.
// Positive is long, negative is short, zero is flat.
type Targets map[Instrument]decimal.Decimal

// Instruments returns the target domain in deterministic order.
func (t Targets) Instruments() []Instrument {
	list := make([]Instrument, 0, len(t))
	for instrument := range t {
		list = append(list, instrument)
	}
	SortInstruments(list)
	return list
}
