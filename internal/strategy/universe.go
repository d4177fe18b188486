package strategy

import (
	"main/internal/schema"
)

// Static is a fixed universe: the instrument set is decided at construction
// and never changes.
type Static struct {
	instruments []schema.Instrument
}

// NewStatic builds a static universe from the given instruments.
func NewStatic(instruments ...schema.Instrument) *Static {
	list := make([]schema.Instrument, len(instruments))
	copy(list, instruments)
	schema.SortInstruments(list)
	return &Static{instruments: list}
}

// Select returns the fixed instrument set.
func (u *Static) Select(_ *Context) []schema.Instrument {
	out := make([]schema.Instrument, len(u.instruments))
	copy(out, u.instruments)
	return out
}
