package model

import (
	"strings"
	"time"
)

// Payment modes accepted on a receipt.
const (
	PaymentCash         = "CASH"
	PaymentUPI          = "UPI"
	PaymentBankTransfer = "BANK_TRANSFER"
)

// MaxAmount is the exclusive upper bound on a stored amount; it matches the
// DECIMAL(12,2) amount column.
const MaxAmount = 1e10

// MaxBlockCode is the longest block code the block column holds.
const MaxBlockCode = 4

// PaymentModes lists the accepted payment modes in display order.
var PaymentModes = []string{PaymentCash, PaymentUPI, PaymentBankTransfer}

// Donation is one filled-in receipt.  It records which booklet and serial the
// receipt came from and the residential unit (block, floor, quarter) that
// donated.  SerialNumber is unique across all booklets and so is the
// (Block, Floor, QuarterNumber) triple.
type Donation struct {
	BookletNumber int       `json:"booklet_number"` // 1-based booklet the receipt was torn from
	SerialNumber  int       `json:"serial_number"`  // number printed on the receipt
	Block         string    `json:"block"`          // upper case
	Floor         int       `json:"floor"`
	QuarterNumber int       `json:"quarter_number"`
	Amount        float64   `json:"amount"`       // rupees, two decimals
	PaymentMode   string    `json:"payment_mode"` // one of PaymentModes
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"` // equal to CreatedAt; records are never edited
}

// NormalizePaymentMode maps user input such as "cash" or "Bank Transfer" onto
// one of PaymentModes.  The second result is false for unknown modes.
func NormalizePaymentMode(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	for _, m := range PaymentModes {
		if s == m {
			return m, true
		}
	}
	return "", false
}
