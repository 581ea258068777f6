package handler // handler package contains the donation HTTP handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/metrics"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
	"github.com/iliyamo/receipt-booklet-ledger/internal/queue"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

// storeTimeout bounds every storage call made while serving a request.
const storeTimeout = 5 * time.Second

// EventPublisher delivers donation events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.DonationEvent) error
}

// DonationHandler serves the /v1/donations endpoints.
type DonationHandler struct {
	Store   repository.DonationStore
	Scheme  booklet.Scheme
	Layout  booklet.Layout
	Events  EventPublisher  // optional
	Metrics *metrics.Ledger // optional
	Log     *zap.Logger
}

// NewDonationHandler wires a DonationHandler.  A nil store is a programming
// error and panics.
func NewDonationHandler(store repository.DonationStore, scheme booklet.Scheme, layout booklet.Layout,
	events EventPublisher, m *metrics.Ledger, log *zap.Logger) *DonationHandler {
	if store == nil {
		panic("nil donation store")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DonationHandler{Store: store, Scheme: scheme, Layout: layout, Events: events, Metrics: m, Log: log}
}

// createDonationRequest uses pointers so a missing field can be told apart
// from a zero value.  qtr_number is the older name of quarter_number.
type createDonationRequest struct {
	BookletNumber *int     `json:"booklet_number"`
	SerialNumber  *int     `json:"serial_number"`
	Block         string   `json:"block"`
	Floor         *int     `json:"floor"`
	QuarterNumber *int     `json:"quarter_number"`
	QtrNumber     *int     `json:"qtr_number"`
	Amount        *float64 `json:"amount"`
	PaymentMode   string   `json:"payment_mode"`
}

func (r createDonationRequest) missing() []string {
	var out []string
	if r.BookletNumber == nil {
		out = append(out, "booklet_number")
	}
	if r.SerialNumber == nil {
		out = append(out, "serial_number")
	}
	if strings.TrimSpace(r.Block) == "" {
		out = append(out, "block")
	}
	if r.Floor == nil {
		out = append(out, "floor")
	}
	if r.QuarterNumber == nil && r.QtrNumber == nil {
		out = append(out, "quarter_number")
	}
	if r.Amount == nil {
		out = append(out, "amount")
	}
	if strings.TrimSpace(r.PaymentMode) == "" {
		out = append(out, "payment_mode")
	}
	return out
}

// Create handles POST /v1/donations.
func (h *DonationHandler) Create(c echo.Context) error {
	var req createDonationRequest
	if err := c.Bind(&req); err != nil {
		h.reject(metrics.ReasonValidation)
		return badRequest(c, "invalid request body")
	}
	if missing := req.missing(); len(missing) > 0 {
		h.reject(metrics.ReasonValidation)
		return badRequest(c, "missing required fields: "+strings.Join(missing, ", "))
	}
	quarter := req.QuarterNumber
	if quarter == nil {
		quarter = req.QtrNumber
	}

	d := model.Donation{
		BookletNumber: *req.BookletNumber,
		SerialNumber:  *req.SerialNumber,
		Block:         booklet.NormalizeBlock(req.Block),
		Floor:         *req.Floor,
		QuarterNumber: *quarter,
		Amount:        *req.Amount,
	}
	if err := h.Scheme.ValidateSerial(d.SerialNumber, d.BookletNumber); err != nil {
		h.reject(metrics.RejectReason(err))
		return respondError(c, h.Log, err)
	}
	if err := h.Layout.ValidateLocation(d.Block, d.Floor, d.QuarterNumber); err != nil {
		h.reject(metrics.RejectReason(err))
		return respondError(c, h.Log, err)
	}
	// stored with two decimals; bounds apply to the rounded value
	d.Amount = math.Round(d.Amount*100) / 100
	if d.Amount < 0 || math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		h.reject(metrics.ReasonValidation)
		return badRequest(c, "amount must be a non-negative number")
	}
	if d.Amount >= model.MaxAmount {
		h.reject(metrics.ReasonValidation)
		return badRequest(c, "amount must be less than 10000000000")
	}
	mode, ok := model.NormalizePaymentMode(req.PaymentMode)
	if !ok {
		h.reject(metrics.ReasonValidation)
		return badRequest(c, "payment_mode must be one of "+strings.Join(model.PaymentModes, ", "))
	}
	d.PaymentMode = mode

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	if err := h.precheck(ctx, d); err != nil {
		if statusFor(err) == http.StatusConflict {
			h.duplicate(metrics.StagePrecheck)
		}
		h.reject(metrics.RejectReason(err))
		return respondError(c, h.Log, err)
	}
	// The store's unique keys settle races the precheck cannot see.
	if err := h.Store.Create(ctx, &d); err != nil {
		if statusFor(err) == http.StatusConflict {
			h.duplicate(metrics.StageStorage)
		}
		h.reject(metrics.RejectReason(err))
		return respondError(c, h.Log, err)
	}

	if h.Metrics != nil {
		h.Metrics.Recorded(d.Amount)
	}
	h.Log.Info("donation recorded",
		zap.Int("serial_number", d.SerialNumber),
		zap.Int("booklet_number", d.BookletNumber),
		zap.String("unit", d.Block+"-"+strconv.Itoa(d.Floor)+"-"+strconv.Itoa(d.QuarterNumber)))
	h.emit(queue.DonationChanged(queue.TypeRecorded, d))
	return c.JSON(http.StatusCreated, d)
}

// precheck looks for an existing serial or location before inserting.
func (h *DonationHandler) precheck(ctx context.Context, d model.Donation) error {
	if _, err := h.Store.GetBySerial(ctx, d.SerialNumber); err == nil {
		return repository.ErrDuplicateSerial
	} else if statusFor(err) != http.StatusNotFound {
		return err
	}
	taken, err := h.Store.ExistsLocation(ctx, d.Block, d.Floor, d.QuarterNumber)
	if err != nil {
		return err
	}
	if taken {
		return repository.ErrDuplicateLocation
	}
	return nil
}

// List handles GET /v1/donations.
func (h *DonationHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	items, err := h.Store.List(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if items == nil {
		items = []model.Donation{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/donations/:serial.
func (h *DonationHandler) Get(c echo.Context) error {
	serial, err := strconv.Atoi(c.Param("serial"))
	if err != nil {
		return badRequest(c, "invalid serial number")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	d, err := h.Store.GetBySerial(ctx, serial)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteBySerial handles DELETE /v1/donations/:serial.
func (h *DonationHandler) DeleteBySerial(c echo.Context) error {
	serial, err := strconv.Atoi(c.Param("serial"))
	if err != nil {
		return badRequest(c, "invalid serial number")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()

	d, err := h.Store.GetBySerial(ctx, serial)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Store.DeleteBySerial(ctx, serial); err != nil {
		return respondError(c, h.Log, err)
	}
	if h.Metrics != nil {
		h.Metrics.Deleted("single", 1)
	}
	h.Log.Info("donation deleted", zap.Int("serial_number", serial))
	h.emit(queue.DonationChanged(queue.TypeDeleted, *d))
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll handles DELETE /v1/donations.  The route is restricted to admins.
func (h *DonationHandler) DeleteAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	n, err := h.Store.DeleteAll(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if h.Metrics != nil {
		h.Metrics.Deleted("bulk", n)
	}
	h.Log.Warn("all donations deleted", zap.Int64("deleted", n))
	h.emit(queue.Purged(n))
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// emit publishes ev in the background.  Delivery failures never fail the
// request; the publisher logs them.
func (h *DonationHandler) emit(ev queue.DonationEvent) {
	if h.Events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.Events.Publish(ctx, ev)
	}()
}

func (h *DonationHandler) reject(reason string) {
	if h.Metrics != nil {
		h.Metrics.Rejected(reason)
	}
}

func (h *DonationHandler) duplicate(stage string) {
	if h.Metrics != nil {
		h.Metrics.Duplicate(stage)
	}
}
