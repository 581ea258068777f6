package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/metrics"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

type fixture struct {
	e      *echo.Echo
	store  *memStore
	events *recordingPublisher
}

func newFixture(t *testing.T, wrap func(*memStore) repository.DonationStore) fixture {
	t.Helper()
	store := newMemStore()
	var ds repository.DonationStore = store
	if wrap != nil {
		ds = wrap(store)
	}
	events := &recordingPublisher{}
	h := NewDonationHandler(ds, booklet.DefaultScheme(), booklet.DefaultLayout(), events,
		metrics.NewLedger(prometheus.NewRegistry()), nil)

	e := echo.New()
	e.GET("/v1/layout", h.GetLayout)
	e.POST("/v1/donations", h.Create)
	e.GET("/v1/donations", h.List)
	e.DELETE("/v1/donations", h.DeleteAll)
	e.GET("/v1/donations/available-serials", h.AvailableSerials)
	e.GET("/v1/donations/total", h.Total)
	e.GET("/v1/donations/booklets", h.Booklets)
	e.GET("/v1/donations/booklets/:number", h.Booklet)
	e.GET("/v1/donations/blocks", h.Blocks)
	e.GET("/v1/donations/blocks/:block", h.Block)
	e.GET("/v1/donations/:serial", h.Get)
	e.DELETE("/v1/donations/:serial", h.DeleteBySerial)
	return fixture{e: e, store: store, events: events}
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

const validBody = `{"booklet_number":3,"serial_number":101,"block":"a","floor":1,"quarter_number":1,"amount":500,"payment_mode":"Cash"}`

func TestCreateDonation(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/v1/donations", validBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var d model.Donation
	decode(t, rec, &d)
	assert.Equal(t, 101, d.SerialNumber)
	assert.Equal(t, "A", d.Block)
	assert.Equal(t, model.PaymentCash, d.PaymentMode)
	assert.False(t, d.CreatedAt.IsZero())

	assert.Eventually(t, func() bool {
		types := f.events.types()
		return len(types) == 1 && types[0] == "donation.recorded"
	}, time.Second, 10*time.Millisecond)
}

func TestCreateDonationLegacyQuarterAndBankTransfer(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/v1/donations",
		`{"booklet_number":1,"serial_number":1,"block":"C","floor":9,"qtr_number":6,"amount":0,"payment_mode":"Bank Transfer"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d model.Donation
	decode(t, rec, &d)
	assert.Equal(t, 6, d.QuarterNumber)
	assert.Equal(t, model.PaymentBankTransfer, d.PaymentMode)
	assert.Zero(t, d.Amount)
}

func TestCreateDonationValidation(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"malformed", `{"booklet_number":`, "invalid request body"},
		{"missing fields", `{"booklet_number":3}`, "missing required fields: serial_number, block, floor, quarter_number, amount, payment_mode"},
		{"serial out of range", `{"booklet_number":3,"serial_number":151,"block":"A","floor":1,"quarter_number":1,"amount":1,"payment_mode":"CASH"}`,
			"serial number must be between 101 and 150 for booklet 3"},
		{"booklet zero", `{"booklet_number":0,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":1,"payment_mode":"CASH"}`,
			"invalid booklet number: must be between 1 and 20"},
		{"booklet 21", `{"booklet_number":21,"serial_number":1001,"block":"A","floor":1,"quarter_number":1,"amount":1,"payment_mode":"CASH"}`,
			"invalid booklet number: must be between 1 and 20"},
		{"unknown block", `{"booklet_number":1,"serial_number":1,"block":"I","floor":1,"quarter_number":1,"amount":1,"payment_mode":"CASH"}`,
			`invalid block: "I"`},
		{"floor above reduced ceiling", `{"booklet_number":1,"serial_number":1,"block":"B","floor":10,"quarter_number":1,"amount":1,"payment_mode":"CASH"}`,
			"invalid floor: floor must be between 1 and 9 for block B"},
		{"quarter 7", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":7,"amount":1,"payment_mode":"CASH"}`,
			"invalid quarter number: must be between 1 and 6"},
		{"negative amount", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":-5,"payment_mode":"CASH"}`,
			"amount must be a non-negative number"},
		{"amount overflows when rounded", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":1e307,"payment_mode":"CASH"}`,
			"amount must be a non-negative number"},
		{"amount above column bound", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":1e13,"payment_mode":"CASH"}`,
			"amount must be less than 10000000000"},
		{"amount rounds up to bound", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":9999999999.999,"payment_mode":"CASH"}`,
			"amount must be less than 10000000000"},
		{"unknown payment mode", `{"booklet_number":1,"serial_number":1,"block":"A","floor":1,"quarter_number":1,"amount":5,"payment_mode":"CHEQUE"}`,
			"payment_mode must be one of CASH, UPI, BANK_TRANSFER"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(http.MethodPost, "/v1/donations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.wantErr, errorOf(t, rec))
			assert.Empty(t, f.store.items)
		})
	}
}

func TestCreateDonationDuplicates(t *testing.T) {
	for _, tc := range []struct {
		name string
		wrap func(*memStore) repository.DonationStore
	}{
		{"precheck", nil},
		{"storage constraint", func(m *memStore) repository.DonationStore { return blindStore{m} }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.wrap)
			require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", validBody).Code)

			sameSerial := `{"booklet_number":3,"serial_number":101,"block":"B","floor":2,"quarter_number":2,"amount":1,"payment_mode":"UPI"}`
			rec := f.do(http.MethodPost, "/v1/donations", sameSerial)
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, "serial number already exists", errorOf(t, rec))

			sameUnit := `{"booklet_number":3,"serial_number":102,"block":"A","floor":1,"quarter_number":1,"amount":1,"payment_mode":"UPI"}`
			rec = f.do(http.MethodPost, "/v1/donations", sameUnit)
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.Equal(t, "this location already has a donation", errorOf(t, rec))

			assert.Len(t, f.store.items, 1)
		})
	}
}

func TestAvailableSerials(t *testing.T) {
	f := newFixture(t, nil)
	for i, serial := range []int{101, 102, 150} {
		body := `{"booklet_number":3,"serial_number":` + strconv.Itoa(serial) + `,"block":"D","floor":2,"quarter_number":` + strconv.Itoa(i+1) + `,"amount":10,"payment_mode":"UPI"}`
		require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", body).Code)
	}

	rec := f.do(http.MethodGet, "/v1/donations/available-serials?booklet_number=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body availabilityResponse
	decode(t, rec, &body)
	assert.Equal(t, booklet.Range{Start: 101, End: 150}, body.Range)
	assert.Equal(t, 50, body.Total)
	assert.Equal(t, 47, body.Available)
	require.Len(t, body.AvailableSerials, 47)
	assert.Equal(t, 103, body.AvailableSerials[0])
	assert.Equal(t, 149, body.AvailableSerials[46])

	for _, q := range []string{"0", "21", "x", ""} {
		rec := f.do(http.MethodGet, "/v1/donations/available-serials?booklet_number="+q, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTotalRecomputedAfterWrites(t *testing.T) {
	f := newFixture(t, nil)
	total := func() float64 {
		rec := f.do(http.MethodGet, "/v1/donations/total", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		var body struct{ Total float64 }
		decode(t, rec, &body)
		return body.Total
	}
	assert.Zero(t, total())
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", validBody).Code)
	assert.Equal(t, 500.0, total())
	require.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/donations/101", "").Code)
	assert.Zero(t, total())
}

func TestDeleteBySerial(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", validBody).Code)

	assert.Equal(t, http.StatusNoContent, f.do(http.MethodDelete, "/v1/donations/101", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodDelete, "/v1/donations/101", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodDelete, "/v1/donations/abc", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/donations/101", "").Code)

	// the unit is free again
	again := `{"booklet_number":3,"serial_number":120,"block":"A","floor":1,"quarter_number":1,"amount":5,"payment_mode":"CASH"}`
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", again).Code)

	assert.Eventually(t, func() bool { return len(f.events.types()) == 3 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, f.events.types(), "donation.deleted")
}

func TestDeleteAll(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", validBody).Code)

	rec := f.do(http.MethodDelete, "/v1/donations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct{ Deleted int64 }
	decode(t, rec, &body)
	assert.EqualValues(t, 1, body.Deleted)

	rec = f.do(http.MethodGet, "/v1/donations", "")
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}

func TestGroupedViews(t *testing.T) {
	f := newFixture(t, nil)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/v1/donations", validBody).Code)

	rec := f.do(http.MethodGet, "/v1/donations/booklets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all struct{ Booklets []booklet.BookletSummary }
	decode(t, rec, &all)
	assert.Len(t, all.Booklets, 20)

	rec = f.do(http.MethodGet, "/v1/donations/booklets/3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var one booklet.BookletSummary
	decode(t, rec, &one)
	assert.Equal(t, 1, one.Used)
	assert.Equal(t, 49, one.Available)
	assert.Equal(t, 500.0, one.TotalAmount)
	require.NotNil(t, one.Slots[0])
	assert.Equal(t, 101, one.Slots[0].SerialNumber)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/donations/booklets/21", "").Code)

	rec = f.do(http.MethodGet, "/v1/donations/blocks/a", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var block booklet.BlockSummary
	decode(t, rec, &block)
	assert.Equal(t, "A", block.Block)
	assert.Equal(t, 1, block.Occupied)
	assert.Len(t, block.Floors, 11)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/donations/blocks/I", "").Code)

	rec = f.do(http.MethodGet, "/v1/donations/blocks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var blocks struct{ Blocks []booklet.BlockSummary }
	decode(t, rec, &blocks)
	assert.Len(t, blocks.Blocks, 11)
}

func TestLayout(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/v1/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Booklets []layoutBooklet `json:"booklets"`
		Blocks   []layoutBlock   `json:"blocks"`
		Quarters int             `json:"quarters_per_floor"`
		Modes    []string        `json:"payment_modes"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Booklets, 20)
	assert.Equal(t, booklet.Range{Start: 951, End: 1000}, body.Booklets[19].Range)
	assert.Equal(t, layoutBlock{Block: "B", MaxFloor: 9}, body.Blocks[1])
	assert.Equal(t, 6, body.Quarters)
	assert.Equal(t, model.PaymentModes, body.Modes)
}

func TestNewDonationHandlerPanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() {
		NewDonationHandler(nil, booklet.DefaultScheme(), booklet.DefaultLayout(), nil, nil, nil)
	})
}
