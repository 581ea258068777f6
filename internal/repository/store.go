package repository

import (
	"context"

	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// DonationStore is implemented by every storage backend.
type DonationStore interface {
	// Create inserts d and fills its timestamps.  Uniqueness violations are
	// reported as ErrDuplicateSerial or ErrDuplicateLocation.
	Create(ctx context.Context, d *model.Donation) error
	// List returns all donations, newest first.
	List(ctx context.Context) ([]model.Donation, error)
	GetBySerial(ctx context.Context, serial int) (*model.Donation, error)
	ExistsLocation(ctx context.Context, block string, floor, quarter int) (bool, error)
	// SerialsInRange returns the recorded serials in [start, end], ascending.
	SerialsInRange(ctx context.Context, start, end int) ([]int, error)
	TotalAmount(ctx context.Context) (float64, error)
	// DeleteBySerial returns ErrDonationNotFound when nothing was removed.
	DeleteBySerial(ctx context.Context, serial int) error
	// DeleteAll removes every donation and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
}
