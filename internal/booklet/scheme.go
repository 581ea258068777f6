// Package booklet implements the numbering rules for receipt booklets: which
// serial numbers a booklet owns, which of them are still unused, and where a
// donation may be recorded within the residential blocks.  Everything in this
// package is pure and safe for concurrent use.
package booklet

import (
	"errors"
	"fmt"
)

// Validation failures.  All of them are caller errors and map to 400 responses.
var (
	ErrInvalidBooklet   = errors.New("invalid booklet number")
	ErrInvalidBlock     = errors.New("invalid block")
	ErrInvalidFloor     = errors.New("invalid floor")
	ErrInvalidQuarter   = errors.New("invalid quarter number")
	ErrSerialOutOfRange = errors.New("serial number out of range")
)

// Defaults used when no override is configured.
const (
	DefaultTotalBooklets = 20
	DefaultCapacity      = 50
)

// Range is an inclusive interval of serial numbers.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Size returns the number of serials in the range.
func (r Range) Size() int { return r.End - r.Start + 1 }

// Contains reports whether serial lies inside the range.
func (r Range) Contains(serial int) bool { return serial >= r.Start && serial <= r.End }

// SerialRangeFor returns the raw interval owned by bookletNumber when every
// booklet holds capacity receipts.  It does not check the booklet against a
// configured total; use Scheme.SerialRangeFor for that.
func SerialRangeFor(bookletNumber, capacity int) Range {
	return Range{Start: (bookletNumber-1)*capacity + 1, End: bookletNumber * capacity}
}

// SerialOutOfRangeError carries the interval a serial was expected in so the
// message can be shown to the user as-is.
type SerialOutOfRangeError struct {
	Serial  int
	Booklet int
	Range   Range
}

func (e *SerialOutOfRangeError) Error() string {
	return fmt.Sprintf("serial number must be between %d and %d for booklet %d", e.Range.Start, e.Range.End, e.Booklet)
}

// Is lets errors.Is(err, ErrSerialOutOfRange) match.
func (e *SerialOutOfRangeError) Is(target error) bool { return target == ErrSerialOutOfRange }

// Scheme describes how serial numbers are split across booklets.
type Scheme struct {
	TotalBooklets int // booklets are numbered 1..TotalBooklets
	Capacity      int // receipts per booklet
}

// DefaultScheme returns the canonical 20 x 50 numbering.
func DefaultScheme() Scheme {
	return Scheme{TotalBooklets: DefaultTotalBooklets, Capacity: DefaultCapacity}
}

// ValidBooklet reports whether bookletNumber exists in the scheme.
func (s Scheme) ValidBooklet(bookletNumber int) bool {
	return s.Capacity >= 1 && bookletNumber >= 1 && bookletNumber <= s.TotalBooklets
}

// SerialRangeFor returns the interval owned by bookletNumber.
func (s Scheme) SerialRangeFor(bookletNumber int) (Range, error) {
	if !s.ValidBooklet(bookletNumber) {
		return Range{}, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidBooklet, s.TotalBooklets)
	}
	return SerialRangeFor(bookletNumber, s.Capacity), nil
}

// Ranges returns the interval of every booklet in order.
func (s Scheme) Ranges() []Range {
	if s.Capacity < 1 || s.TotalBooklets < 1 {
		return nil
	}
	out := make([]Range, 0, s.TotalBooklets)
	for b := 1; b <= s.TotalBooklets; b++ {
		out = append(out, SerialRangeFor(b, s.Capacity))
	}
	return out
}

// IsSerialInBooklet reports whether serial belongs to bookletNumber.  An
// invalid booklet owns no serials.
func (s Scheme) IsSerialInBooklet(serial, bookletNumber int) bool {
	r, err := s.SerialRangeFor(bookletNumber)
	if err != nil {
		return false
	}
	return r.Contains(serial)
}

// ValidateSerial returns nil when serial belongs to bookletNumber, otherwise
// ErrInvalidBooklet or a *SerialOutOfRangeError naming the expected range.
func (s Scheme) ValidateSerial(serial, bookletNumber int) error {
	r, err := s.SerialRangeFor(bookletNumber)
	if err != nil {
		return err
	}
	if !r.Contains(serial) {
		return &SerialOutOfRangeError{Serial: serial, Booklet: bookletNumber, Range: r}
	}
	return nil
}

// BookletFor returns the booklet that owns serial.
func (s Scheme) BookletFor(serial int) (int, error) {
	if s.Capacity < 1 || serial < 1 {
		return 0, ErrSerialOutOfRange
	}
	b := (serial-1)/s.Capacity + 1
	if b > s.TotalBooklets {
		return 0, ErrSerialOutOfRange
	}
	return b, nil
}

// AvailableSerials returns every serial of bookletNumber that is not in used,
// in ascending order.  Serials in used that fall outside the booklet are
// ignored.  A full booklet yields an empty, non-nil slice.
func (s Scheme) AvailableSerials(bookletNumber int, used map[int]struct{}) ([]int, error) {
	r, err := s.SerialRangeFor(bookletNumber)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, r.Size())
	for serial := r.Start; serial <= r.End; serial++ {
		if _, taken := used[serial]; taken {
			continue
		}
		out = append(out, serial)
	}
	return out, nil
}

// UsedSet builds the lookup set AvailableSerials expects.
func UsedSet(serials []int) map[int]struct{} {
	set := make(map[int]struct{}, len(serials))
	for _, s := range serials {
		set[s] = struct{}{}
	}
	return set
}
