package booklet

import (
	"fmt"
	"sort"
	"strings"
)

// Floor ceilings observed on site.  Blocks B and C are shorter than the rest.
const (
	StandardMaxFloor = 11
	ReducedMaxFloor  = 9
	DefaultQuarters  = 6
)

// Layout describes the residential blocks donations are recorded against.
type Layout struct {
	Floors   map[string]int // block code -> highest floor
	Quarters int            // quarters per floor, numbered 1..Quarters
}

// DefaultLayout returns the blocks A to L (there is no block I).
func DefaultLayout() Layout {
	floors := make(map[string]int, 11)
	for _, b := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "J", "K", "L"} {
		floors[b] = StandardMaxFloor
	}
	floors["B"] = ReducedMaxFloor
	floors["C"] = ReducedMaxFloor
	return Layout{Floors: floors, Quarters: DefaultQuarters}
}

// NormalizeBlock upper-cases and trims a block code.
func NormalizeBlock(block string) string {
	return strings.ToUpper(strings.TrimSpace(block))
}

// Blocks returns the configured block codes in sorted order.
func (l Layout) Blocks() []string {
	out := make([]string, 0, len(l.Floors))
	for b := range l.Floors {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// MaxFloorFor returns the highest floor of block.
func (l Layout) MaxFloorFor(block string) (int, error) {
	max, ok := l.Floors[NormalizeBlock(block)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBlock, block)
	}
	return max, nil
}

// ValidateLocation checks that (block, floor, quarter) addresses a real unit.
func (l Layout) ValidateLocation(block string, floor, quarter int) error {
	max, err := l.MaxFloorFor(block)
	if err != nil {
		return err
	}
	if floor < 1 || floor > max {
		return fmt.Errorf("%w: floor must be between 1 and %d for block %s", ErrInvalidFloor, max, NormalizeBlock(block))
	}
	if quarter < 1 || quarter > l.Quarters {
		return fmt.Errorf("%w: must be between 1 and %d", ErrInvalidQuarter, l.Quarters)
	}
	return nil
}
