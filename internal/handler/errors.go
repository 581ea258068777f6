package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/booklet"
	"github.com/iliyamo/receipt-booklet-ledger/internal/repository"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, booklet.ErrInvalidBooklet),
		errors.Is(err, booklet.ErrSerialOutOfRange),
		errors.Is(err, booklet.ErrInvalidBlock),
		errors.Is(err, booklet.ErrInvalidFloor),
		errors.Is(err, booklet.ErrInvalidQuarter):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrDonationNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrDuplicateSerial),
		errors.Is(err, repository.ErrDuplicateLocation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}.  Unexpected errors are logged
// and replaced by a generic message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
