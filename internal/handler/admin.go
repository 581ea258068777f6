package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/receipt-booklet-ledger/internal/utils"
)

// AdminHandler issues admin access tokens.
type AdminHandler struct {
	PasswordHash string // bcrypt hash of the admin password
	JWTSecret    string
	AccessTTLMin int
	Log          *zap.Logger
}

// NewAdminHandler panics when the hash or secret is empty.
func NewAdminHandler(passwordHash, jwtSecret string, accessTTLMin int, log *zap.Logger) *AdminHandler {
	if passwordHash == "" || jwtSecret == "" {
		panic("admin handler needs a password hash and a JWT secret")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{PasswordHash: passwordHash, JWTSecret: jwtSecret, AccessTTLMin: accessTTLMin, Log: log}
}

// Login handles POST /v1/admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.Password == "" {
		return badRequest(c, "password is required")
	}
	if !utils.VerifyPassword(h.PasswordHash, body.Password) {
		h.Log.Warn("admin login rejected", zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid password"})
	}
	tok, err := utils.NewAccessToken(h.JWTSecret, "admin", utils.RoleAdmin, h.AccessTTLMin)
	if err != nil {
		h.Log.Error("sign admin token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token": tok.Token,
		"token_type":   "Bearer",
		"expires_at":   tok.Exp.Format(time.RFC3339),
	})
}
