package repository // repository defines data access for donations

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql" // typed MySQL errors for duplicate detection

	"github.com/iliyamo/receipt-booklet-ledger/internal/database"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// MySQL error number for a duplicate entry on a unique key.
const mysqlDuplicateEntry = 1062

// DonationRepo stores donations in the MySQL `donations` table.
type DonationRepo struct {
	db *sql.DB
}

// NewDonationRepo constructs a DonationRepo with the given DB handle.
func NewDonationRepo(db *sql.DB) *DonationRepo {
	return &DonationRepo{db: db}
}

// DB exposes the underlying handle for health checks and migrations.
func (r *DonationRepo) DB() *sql.DB { return r.db }

const donationColumns = `booklet_number, serial_number, block, floor, quarter_number, amount, payment_mode, created_at, updated_at`

// Create inserts a donation and reads back the timestamps assigned by MySQL.
func (r *DonationRepo) Create(ctx context.Context, d *model.Donation) error {
	const q = `INSERT INTO donations (booklet_number, serial_number, block, floor, quarter_number, amount, payment_mode)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, d.BookletNumber, d.SerialNumber, d.Block, d.Floor, d.QuarterNumber, d.Amount, d.PaymentMode)
	if err != nil {
		return classifyInsertError(err)
	}
	// Query back the full row to populate timestamps
	const sel = `SELECT created_at, updated_at FROM donations WHERE serial_number = ?`
	if err := r.db.QueryRowContext(ctx, sel, d.SerialNumber).Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
		return fmt.Errorf("read back donation %d: %w", d.SerialNumber, err)
	}
	return nil
}

// classifyInsertError turns a duplicate-key error into the matching sentinel.
// The offending key is identified by name in the server message.
func classifyInsertError(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDuplicateEntry {
		return err
	}
	if strings.Contains(me.Message, database.LocationIndex) {
		return ErrDuplicateLocation
	}
	return ErrDuplicateSerial
}

// List returns all donations ordered by creation time, newest first.
func (r *DonationRepo) List(ctx context.Context) ([]model.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations ORDER BY created_at DESC, serial_number DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonation(s rowScanner) (model.Donation, error) {
	var d model.Donation
	err := s.Scan(&d.BookletNumber, &d.SerialNumber, &d.Block, &d.Floor, &d.QuarterNumber,
		&d.Amount, &d.PaymentMode, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// GetBySerial retrieves a donation by serial number.
func (r *DonationRepo) GetBySerial(ctx context.Context, serial int) (*model.Donation, error) {
	q := `SELECT ` + donationColumns + ` FROM donations WHERE serial_number = ?`
	d, err := scanDonation(r.db.QueryRowContext(ctx, q, serial))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ExistsLocation reports whether the unit already has a donation.
func (r *DonationRepo) ExistsLocation(ctx context.Context, block string, floor, quarter int) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM donations WHERE block = ? AND floor = ? AND quarter_number = ?)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, block, floor, quarter).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SerialsInRange returns the used serial numbers between start and end inclusive.
func (r *DonationRepo) SerialsInRange(ctx context.Context, start, end int) ([]int, error) {
	const q = `SELECT serial_number FROM donations
	           WHERE serial_number BETWEEN ? AND ?
	           ORDER BY serial_number`
	rows, err := r.db.QueryContext(ctx, q, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var serials []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		serials = append(serials, s)
	}
	return serials, rows.Err()
}

// TotalAmount sums every recorded amount.  An empty table sums to zero.
func (r *DonationRepo) TotalAmount(ctx context.Context) (float64, error) {
	const q = `SELECT COALESCE(SUM(amount), 0) FROM donations`
	var total float64
	if err := r.db.QueryRowContext(ctx, q).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// DeleteBySerial removes a single donation.
func (r *DonationRepo) DeleteBySerial(ctx context.Context, serial int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM donations WHERE serial_number = ?`, serial)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDonationNotFound
	}
	return nil
}

// DeleteAll removes every donation and returns the number of rows removed.
func (r *DonationRepo) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM donations`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
