package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/model"
)

// availabilityResponse is the body of GET /v1/donations/available-serials.
type availabilityResponse struct {
	AvailableSerials []int         `json:"available_serials"`
	Range            booklet.Range `json:"range"`
	Total            int           `json:"total"`
	Available        int           `json:"available"`
}

// AvailableSerials handles GET /v1/donations/available-serials?booklet_number=N.
func (h *DonationHandler) AvailableSerials(c echo.Context) error {
	n, err := strconv.Atoi(c.QueryParam("booklet_number"))
	if err != nil {
		return badRequest(c, "booklet_number must be an integer")
	}
	r, err := h.Scheme.SerialRangeFor(n)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	used, err := h.Store.SerialsInRange(ctx, r.Start, r.End)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	avail, err := h.Scheme.AvailableSerials(n, booklet.UsedSet(used))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, availabilityResponse{
		AvailableSerials: avail,
		Range:            r,
		Total:            r.Size(),
		Available:        len(avail),
	})
}

// Total handles GET /v1/donations/total.  The sum is read from storage on
// every call.
func (h *DonationHandler) Total(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	total, err := h.Store.TotalAmount(ctx)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, echo.Map{"total": total})
}

func (h *DonationHandler) listAll(c echo.Context) ([]model.Donation, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
	defer cancel()
	return h.Store.List(ctx)
}

// Booklets handles GET /v1/donations/booklets.
func (h *DonationHandler) Booklets(c echo.Context) error {
	items, err := h.listAll(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booklets": booklet.GroupByBooklet(h.Scheme, items)})
}

// Booklet handles GET /v1/donations/booklets/:number.
func (h *DonationHandler) Booklet(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return badRequest(c, "booklet number must be an integer")
	}
	if _, err := h.Scheme.SerialRangeFor(n); err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.listAll(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, booklet.GroupByBooklet(h.Scheme, items)[n-1])
}

// Blocks handles GET /v1/donations/blocks.
func (h *DonationHandler) Blocks(c echo.Context) error {
	items, err := h.listAll(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"blocks": booklet.GroupByBlock(h.Layout, items)})
}

// Block handles GET /v1/donations/blocks/:block.
func (h *DonationHandler) Block(c echo.Context) error {
	code := booklet.NormalizeBlock(c.Param("block"))
	if _, err := h.Layout.MaxFloorFor(code); err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.listAll(c)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	for _, b := range booklet.GroupByBlock(h.Layout, items) {
		if b.Block == code {
			return c.JSON(http.StatusOK, b)
		}
	}
	return c.JSON(http.StatusNotFound, echo.Map{"error": "block not found"})
}

type layoutBlock struct {
	Block    string `json:"block"`
	MaxFloor int    `json:"max_floor"`
}

type layoutBooklet struct {
	BookletNumber int           `json:"booklet_number"`
	Range         booklet.Range `json:"range"`
}

// GetLayout handles GET /v1/layout.  It lets clients build their pickers
// without hard-coding the numbering.
func (h *DonationHandler) GetLayout(c echo.Context) error {
	booklets := make([]layoutBooklet, 0, h.Scheme.TotalBooklets)
	for i, r := range h.Scheme.Ranges() {
		booklets = append(booklets, layoutBooklet{BookletNumber: i + 1, Range: r})
	}
	blocks := make([]layoutBlock, 0, len(h.Layout.Floors))
	for _, code := range h.Layout.Blocks() {
		blocks = append(blocks, layoutBlock{Block: code, MaxFloor: h.Layout.Floors[code]})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"booklets":           booklets,
		"capacity":           h.Scheme.Capacity,
		"blocks":             blocks,
		"quarters_per_floor": h.Layout.Quarters,
		"payment_modes":      model.PaymentModes,
	})
}
