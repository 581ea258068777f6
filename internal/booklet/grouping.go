package booklet

import "github.com/iliyamo/receipt-booklet-ledger/internal/model"

// BookletSummary is the booklet-wise view of stored donations.  Slots has one
// entry per serial in Range; a nil entry is an unused receipt.
type BookletSummary struct {
	BookletNumber int               `json:"booklet_number"`
	Range         Range             `json:"range"`
	TotalAmount   float64           `json:"total_amount"`
	Used          int               `json:"used"`
	Available     int               `json:"available"`
	Slots         []*model.Donation `json:"slots"`
}

// QuarterSlot holds the donation recorded for one quarter, if any.
type QuarterSlot struct {
	QuarterNumber int             `json:"quarter_number"`
	Donation      *model.Donation `json:"donation"`
}

// FloorSummary lists the quarters of one floor.
type FloorSummary struct {
	Floor    int           `json:"floor"`
	Quarters []QuarterSlot `json:"quarters"`
}

// BlockSummary is the block-wise view of stored donations.
type BlockSummary struct {
	Block       string         `json:"block"`
	MaxFloor    int            `json:"max_floor"`
	TotalAmount float64        `json:"total_amount"`
	Occupied    int            `json:"occupied"`
	Floors      []FloorSummary `json:"floors"`
}

// GroupByBooklet buckets donations into their booklets.  Every booklet of the
// scheme is present in the result even when empty.  Donations whose serial
// falls outside the scheme are skipped.
func GroupByBooklet(s Scheme, donations []model.Donation) []BookletSummary {
	ranges := s.Ranges()
	out := make([]BookletSummary, len(ranges))
	for i, r := range ranges {
		out[i] = BookletSummary{
			BookletNumber: i + 1,
			Range:         r,
			Available:     r.Size(),
			Slots:         make([]*model.Donation, r.Size()),
		}
	}
	for i := range donations {
		d := &donations[i]
		b, err := s.BookletFor(d.SerialNumber)
		if err != nil {
			continue
		}
		sum := &out[b-1]
		idx := d.SerialNumber - sum.Range.Start
		if sum.Slots[idx] != nil {
			continue
		}
		sum.Slots[idx] = d
		sum.TotalAmount += d.Amount
		sum.Used++
		sum.Available--
	}
	return out
}

// GroupByBlock lays donations out on the block/floor/quarter grid.  Blocks are
// returned in sorted order; locations outside the layout are skipped.
func GroupByBlock(l Layout, donations []model.Donation) []BlockSummary {
	blocks := l.Blocks()
	out := make([]BlockSummary, len(blocks))
	index := make(map[string]int, len(blocks))
	for i, b := range blocks {
		max := l.Floors[b]
		floors := make([]FloorSummary, max)
		for f := 0; f < max; f++ {
			quarters := make([]QuarterSlot, l.Quarters)
			for q := range quarters {
				quarters[q] = QuarterSlot{QuarterNumber: q + 1}
			}
			floors[f] = FloorSummary{Floor: f + 1, Quarters: quarters}
		}
		out[i] = BlockSummary{Block: b, MaxFloor: max, Floors: floors}
		index[b] = i
	}
	for i := range donations {
		d := &donations[i]
		if l.ValidateLocation(d.Block, d.Floor, d.QuarterNumber) != nil {
			continue
		}
		sum := &out[index[NormalizeBlock(d.Block)]]
		slot := &sum.Floors[d.Floor-1].Quarters[d.QuarterNumber-1]
		if slot.Donation != nil {
			continue
		}
		slot.Donation = d
		sum.TotalAmount += d.Amount
		sum.Occupied++
	}
	return out
}
