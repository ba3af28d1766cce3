package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jkaninda/notelens/internal/auth"
	"github.com/jkaninda/okapi"
)

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	SpreadsheetID string `json:"spreadsheet_id"`
}

// LoginRequest is the JSON body for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a signed login token.
type TokenResponse struct {
	Token         string `json:"token"`
	UserID        int64  `json:"user_id"`
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
}

func (g *Gateway) handleRegister(c *okapi.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return c.AbortBadRequest("a valid email is required")
	}
	if len(req.Password) < 8 {
		return c.AbortBadRequest("password must be at least 8 characters")
	}
	if req.SpreadsheetID == "" {
		return c.AbortBadRequest("spreadsheet_id is required")
	}

	hash, err := g.tokens.HashPassword(req.Password)
	if err != nil {
		return c.AbortInternalServerError("registration failed")
	}

	user, err := g.users.Create(c.Context(), req.Email, hash, req.SpreadsheetID)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return c.JSON(http.StatusConflict, ErrorBody{Error: "email already registered"})
		}
		g.logger.ErrorContext(c.Context(), "user registration failed",
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("registration failed")
	}

	token, err := g.tokens.IssueToken(user)
	if err != nil {
		return c.AbortInternalServerError("registration failed")
	}

	g.logger.InfoContext(c.Context(), "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return c.JSON(http.StatusCreated, TokenResponse{
		Token:         token,
		UserID:        user.ID,
		SpreadsheetID: user.SpreadsheetID,
	})
}

func (g *Gateway) handleLogin(c *okapi.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := g.users.GetByEmail(c.Context(), req.Email)
	if err != nil || !g.tokens.CheckPassword(user.PasswordHash, req.Password) {
		return c.AbortUnauthorized("invalid email or password")
	}

	token, err := g.tokens.IssueToken(user)
	if err != nil {
		return c.AbortInternalServerError("login failed")
	}

	g.logger.InfoContext(c.Context(), "user logged in", slog.Int64("user_id", user.ID))

	return c.OK(TokenResponse{
		Token:         token,
		UserID:        user.ID,
		SpreadsheetID: user.SpreadsheetID,
	})
}
