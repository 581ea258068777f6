// Package metrics holds the Prometheus collectors for donation traffic.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

// Rejection reasons, kept low-cardinality.
const (
	ReasonValidation        = "validation"
	ReasonSerialRange       = "serial_out_of_range"
	ReasonDuplicateSerial   = "duplicate_serial"
	ReasonDuplicateLocation = "duplicate_location"
	ReasonStorage           = "storage"
)

// Duplicate detection stages.
const (
	StagePrecheck = "precheck"
	StageStorage  = "storage"
)

// Ledger counts writes against the ledger.
type Ledger struct {
	recorded   prometheus.Counter
	amount     prometheus.Counter
	rejected   *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	deleted    *prometheus.CounterVec
}

// NewLedger creates the collectors and registers them with reg.  A nil reg
// uses the default registerer.
func NewLedger(reg prometheus.Registerer) *Ledger {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Ledger{
		recorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_donations_recorded_total",
			Help: "Donations stored.",
		}),
		amount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_donation_amount_total",
			Help: "Sum of recorded donation amounts in rupees.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_donations_rejected_total",
			Help: "Donation submissions rejected by reason.",
		}, []string{"reason"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_duplicates_detected_total",
			Help: "Duplicate submissions by the stage that caught them.",
		}, []string{"stage"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_donations_deleted_total",
			Help: "Donations removed, single or bulk.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.recorded, m.amount, m.rejected, m.duplicates, m.deleted)
	return m
}

// Recorded counts a stored donation of amount rupees.
func (m *Ledger) Recorded(amount float64) {
	m.recorded.Inc()
	if amount > 0 {
		m.amount.Add(amount)
	}
}

// Rejected counts a refused submission.
func (m *Ledger) Rejected(reason string) { m.rejected.WithLabelValues(reason).Inc() }

// Duplicate counts a duplicate caught at stage.
func (m *Ledger) Duplicate(stage string) { m.duplicates.WithLabelValues(stage).Inc() }

// Deleted counts n removed donations.
func (m *Ledger) Deleted(mode string, n int64) {
	if n > 0 {
		m.deleted.WithLabelValues(mode).Add(float64(n))
	}
}

// RejectReason maps a create error to a reason label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, booklet.ErrSerialOutOfRange):
		return ReasonSerialRange
	case errors.Is(err, booklet.ErrInvalidBooklet),
		errors.Is(err, booklet.ErrInvalidBlock),
		errors.Is(err, booklet.ErrInvalidFloor),
		errors.Is(err, booklet.ErrInvalidQuarter):
		return ReasonValidation
	case errors.Is(err, repository.ErrDuplicateSerial):
		return ReasonDuplicateSerial
	case errors.Is(err, repository.ErrDuplicateLocation):
		return ReasonDuplicateLocation
	default:
		return ReasonStorage
	}
}
