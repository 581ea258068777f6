// Package queue defines the donation events exchanged over RabbitMQ and the
// consumer that writes them to the audit log.
package queue

import (
	"time"

	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// DonationQueue is the durable queue carrying DonationEvent messages.
const DonationQueue = "donation.events"

// Event types.
const (
	TypeRecorded = "donation.recorded"
	TypeDeleted  = "donation.deleted"
	TypePurged   = "donation.purged"
)

// DonationEvent describes a change to the ledger.  Donation fields are empty
// for TypePurged, which carries DeletedCount instead.
type DonationEvent struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	SerialNumber  int     `json:"serial_number,omitempty"`
	BookletNumber int     `json:"booklet_number,omitempty"`
	Block         string  `json:"block,omitempty"`
	Floor         int     `json:"floor,omitempty"`
	QuarterNumber int     `json:"quarter_number,omitempty"`
	Amount        float64 `json:"amount"`
	PaymentMode   string  `json:"payment_mode,omitempty"`
	DeletedCount  int64   `json:"deleted_count,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}

// DonationChanged builds a recorded or deleted event from d.
func DonationChanged(eventType string, d model.Donation) DonationEvent {
	return DonationEvent{
		Type:          eventType,
		SerialNumber:  d.SerialNumber,
		BookletNumber: d.BookletNumber,
		Block:         d.Block,
		Floor:         d.Floor,
		QuarterNumber: d.QuarterNumber,
		Amount:        d.Amount,
		PaymentMode:   d.PaymentMode,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}

// Purged builds the event for a bulk delete of n donations.
func Purged(n int64) DonationEvent {
	return DonationEvent{
		Type:         TypePurged,
		DeletedCount: n,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
