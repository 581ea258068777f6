package repository

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestClassifyInsertError(t *testing.T) {
	other := errors.New("connection reset")
	cases := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "duplicate serial",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '101' for key 'donations.uq_donations_serial'"},
			want: ErrDuplicateSerial,
		},
		{
			name: "duplicate location",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'A-1-1' for key 'donations.uq_donations_location'"},
			want: ErrDuplicateLocation,
		},
		{
			name: "other mysql error",
			err:  &mysql.MySQLError{Number: 1146, Message: "Table 'ledger.donations' doesn't exist"},
		},
		{
			name: "non mysql error",
			err:  other,
			want: other,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyInsertError(tc.err)
			if tc.want == nil {
				assert.Same(t, tc.err, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}
