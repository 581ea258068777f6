package metrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

func TestLedgerCounters(t *testing.T) {
	m := NewLedger(prometheus.NewRegistry())

	m.Recorded(500)
	m.Recorded(0)
	m.Rejected(ReasonDuplicateSerial)
	m.Duplicate(StageStorage)
	m.Deleted("bulk", 3)
	m.Deleted("single", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.recorded))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.amount))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues(ReasonDuplicateSerial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicates.WithLabelValues(StageStorage)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deleted.WithLabelValues("bulk")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.deleted))
}

func TestRejectReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&booklet.SerialOutOfRangeError{Serial: 1, Booklet: 3, Range: booklet.Range{Start: 101, End: 150}}, ReasonSerialRange},
		{fmt.Errorf("%w: 0", booklet.ErrInvalidBooklet), ReasonValidation},
		{booklet.ErrInvalidQuarter, ReasonValidation},
		{repository.ErrDuplicateSerial, ReasonDuplicateSerial},
		{repository.ErrDuplicateLocation, ReasonDuplicateLocation},
		{errors.New("boom"), ReasonStorage},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, RejectReason(tc.err))
		})
	}
}
