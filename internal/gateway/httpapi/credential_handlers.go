package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jkaninda/notelens/internal/credential"
	"github.com/jkaninda/okapi"
)

// CredentialRequest is the JSON body for POST /v1/admin/credentials.
type CredentialRequest struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// CredentialResponse describes a stored credential. The payload is never
// echoed back.
type CredentialResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToggleRequest is the JSON body for PUT /v1/admin/credentials/{id}/toggle.
type ToggleRequest struct {
	Active bool `json:"active"`
}

// DeleteResponse reports whether a credential was removed.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// TestRequest is the JSON body for POST /v1/admin/credentials/test.
type TestRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// AssignRequest is the JSON body for POST /v1/admin/credentials/assign.
type AssignRequest struct {
	UserID       int64 `json:"user_id"`
	CredentialID int64 `json:"credential_id"`
}

// AssignResponse reports whether the assignment was stored.
type AssignResponse struct {
	Assigned bool `json:"assigned"`
}

func credentialResponse(c *credential.Credential) CredentialResponse {
	return CredentialResponse{
		ID:        c.ID,
		Name:      c.Name,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (g *Gateway) handleCredentialAdd(c *okapi.Context) error {
	var req CredentialRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	cred, err := g.registry.Add(c.Context(), req.Name, req.Payload)
	if err != nil {
		var vErr *credential.ValidationError
		switch {
		case errors.As(err, &vErr):
			return c.AbortBadRequest(vErr.Error())
		case errors.Is(err, credential.ErrNameTaken):
			return c.JSON(http.StatusConflict, ErrorBody{Error: "credential name already exists"})
		default:
			return c.AbortInternalServerError("adding credential failed")
		}
	}

	return c.JSON(http.StatusCreated, credentialResponse(cred))
}

func (g *Gateway) handleCredentialList(c *okapi.Context) error {
	creds, err := g.registry.List(c.Context())
	if err != nil {
		return c.AbortInternalServerError("listing credentials failed")
	}

	resp := make([]CredentialResponse, len(creds))
	for i := range creds {
		resp[i] = credentialResponse(&creds[i])
	}
	return c.OK(resp)
}

func (g *Gateway) handleCredentialToggle(c *okapi.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.AbortBadRequest("invalid credential ID")
	}

	var req ToggleRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	cred, err := g.registry.Toggle(c.Context(), id, req.Active)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return c.JSON(http.StatusNotFound, ErrorBody{Error: "credential not found"})
		}
		return c.AbortInternalServerError("toggling credential failed")
	}

	return c.OK(credentialResponse(cred))
}

func (g *Gateway) handleCredentialDelete(c *okapi.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.AbortBadRequest("invalid credential ID")
	}

	deleted, err := g.registry.Delete(c.Context(), id)
	if err != nil {
		return c.AbortInternalServerError("deleting credential failed")
	}

	return c.OK(DeleteResponse{Deleted: deleted})
}

func (g *Gateway) handleCredentialTest(c *okapi.Context) error {
	var req TestRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}

	// Probe outcomes, including failures, always come back as 200.
	return c.OK(g.registry.Test(c.Context(), req.Payload))
}

func (g *Gateway) handleCredentialAssign(c *okapi.Context) error {
	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if req.UserID == 0 || req.CredentialID == 0 {
		return c.AbortBadRequest("user_id and credential_id are required")
	}

	return c.OK(AssignResponse{Assigned: g.registry.Assign(c.Context(), req.UserID, req.CredentialID)})
}
