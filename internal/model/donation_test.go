package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePaymentMode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"CASH", PaymentCash, true},
		{" cash ", PaymentCash, true},
		{"upi", PaymentUPI, true},
		{"Bank Transfer", PaymentBankTransfer, true},
		{"bank-transfer", PaymentBankTransfer, true},
		{"BANK_TRANSFER", PaymentBankTransfer, true},
		{"cheque", "", false},
		{"", "", false},
		{"banktransfer", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := NormalizePaymentMode(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
