package domain

import "math"

// PriceLevel is a single price+size entry in an orderbook side.
type PriceLevel struct {
	Price float64
	Size  float64
}

// SortOrder controls which end of a BookSide is "best".
type SortOrder int

const (
	// SortDesc keeps the highest price first (bids).
	SortDesc SortOrder = iota
	// SortAsc keeps the lowest price first (asks).
	SortAsc
)

// BookSide is one side of an orderbook: unique prices, best level first.
// The zero value of a side is usable; construct with NewBookSide to pick
// the ordering direction.
type BookSide struct {
	levels []PriceLevel
	order  SortOrder
}

// NewBookSide returns an empty side with the given ordering direction.
func NewBookSide(order SortOrder) BookSide {
	return BookSide{order: order}
}

// Upsert inserts or replaces the level at price. A size <= 0 removes the
// level instead. Non-finite prices or sizes are dropped without effect, so
// a malformed feed value can never enter the book. Applying the same
// (price, size) twice yields the same state.
func (s *BookSide) Upsert(price, size float64) {
	if math.IsNaN(price) || math.IsInf(price, 0) || math.IsNaN(size) || math.IsInf(size, 0) {
		return
	}

	idx := -1
	for i := range s.levels {
		if s.levels[i].Price == price {
			idx = i
			break
		}
	}

	if size <= 0 {
		if idx >= 0 {
			s.levels = append(s.levels[:idx], s.levels[idx+1:]...)
		}
		return
	}

	if idx >= 0 {
		s.levels[idx].Size = size
		return
	}

	// Insert keeping the side sorted, best price first.
	pos := len(s.levels)
	for i := range s.levels {
		if s.before(price, s.levels[i].Price) {
			pos = i
			break
		}
	}
	s.levels = append(s.levels, PriceLevel{})
	copy(s.levels[pos+1:], s.levels[pos:])
	s.levels[pos] = PriceLevel{Price: price, Size: size}
}

// Replace discards the side's contents and repopulates it from levels,
// dropping non-finite and non-positive entries and sorting by the side's
// direction.
func (s *BookSide) Replace(levels []PriceLevel) {
	s.levels = s.levels[:0]
	for _, lvl := range levels {
		s.Upsert(lvl.Price, lvl.Size)
	}
}

// ForceLevel guarantees a level exists at price, inserting a size-0
// placeholder at its sorted position when absent. Existing levels keep their
// size. This backs top-of-book corrections where the venue names the new
// best price but the remaining size there is not yet known; a placeholder
// means "price authoritative, size pending the next real update".
func (s *BookSide) ForceLevel(price float64) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return
	}
	for i := range s.levels {
		if s.levels[i].Price == price {
			return
		}
	}
	pos := len(s.levels)
	for i := range s.levels {
		if s.before(price, s.levels[i].Price) {
			pos = i
			break
		}
	}
	s.levels = append(s.levels, PriceLevel{})
	copy(s.levels[pos+1:], s.levels[pos:])
	s.levels[pos] = PriceLevel{Price: price, Size: 0}
}

// Best returns the most aggressive level, or false when the side is empty.
func (s *BookSide) Best() (PriceLevel, bool) {
	if len(s.levels) == 0 {
		return PriceLevel{}, false
	}
	return s.levels[0], true
}

// SizeAt returns the size resting at price, 0 if no level exists there.
func (s *BookSide) SizeAt(price float64) float64 {
	for i := range s.levels {
		if s.levels[i].Price == price {
			return s.levels[i].Size
		}
	}
	return 0
}

// Len returns the number of levels on the side.
func (s *BookSide) Len() int {
	return len(s.levels)
}

// Levels returns a copy of the side's levels, best first.
func (s *BookSide) Levels() []PriceLevel {
	out := make([]PriceLevel, len(s.levels))
	copy(out, s.levels)
	return out
}

// Clone returns an independent copy of the side.
func (s *BookSide) Clone() BookSide {
	return BookSide{levels: s.Levels(), order: s.order}
}

// before reports whether a price sorts ahead of another for this side.
func (s *BookSide) before(a, b float64) bool {
	if s.order == SortAsc {
		return a < b
	}
	return a > b
}
