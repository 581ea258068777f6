package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

// Index names referenced by the repository when classifying duplicate keys.
const (
	SerialIndex   = "uq_donations_serial"
	LocationIndex = "uq_donations_location"
)

// block and amount widths follow model.MaxBlockCode and model.MaxAmount.
const createDonations = `CREATE TABLE IF NOT EXISTS donations (
	id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	booklet_number INT NOT NULL,
	serial_number  INT NOT NULL,
	block          VARCHAR(4) NOT NULL,
	floor          INT NOT NULL,
	quarter_number INT NOT NULL,
	amount         DECIMAL(12,2) NOT NULL DEFAULT 0,
	payment_mode   VARCHAR(16) NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	UNIQUE KEY ` + SerialIndex + ` (serial_number),
	UNIQUE KEY ` + LocationIndex + ` (block, floor, quarter_number),
	KEY idx_donations_booklet (booklet_number)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// mysqlCantDropKey is returned by DROP INDEX when the index does not exist.
const mysqlCantDropKey = 1091

// EnsureSchema creates the donations table and its unique keys if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createDonations); err != nil {
		return fmt.Errorf("create donations table: %w", err)
	}
	return nil
}

// RecreateIndexes drops both unique indexes, tolerating absent ones, and
// creates them again.  Creation fails if existing rows already violate a key.
func RecreateIndexes(ctx context.Context, db *sql.DB) error {
	for _, idx := range []string{SerialIndex, LocationIndex} {
		_, err := db.ExecContext(ctx, "DROP INDEX "+idx+" ON donations")
		var me *mysql.MySQLError
		if err != nil && !(errors.As(err, &me) && me.Number == mysqlCantDropKey) {
			return fmt.Errorf("drop index %s: %w", idx, err)
		}
	}
	stmts := []string{
		"CREATE UNIQUE INDEX " + SerialIndex + " ON donations (serial_number)",
		"CREATE UNIQUE INDEX " + LocationIndex + " ON donations (block, floor, quarter_number)",
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("recreate index: %w", err)
		}
	}
	return nil
}
