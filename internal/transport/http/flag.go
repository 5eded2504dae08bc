package httpapi

import (
	"encoding/json"
	"net/http"

	"gatepass/internal/platform/httputil"
	"gatepass/internal/platform/middleware"
)

type createFlagRequest struct {
	VisitorID    int64  `json:"visitor_id"`
	CredentialID int64  `json:"credential_id"`
	Reason       string `json:"reason"`
}

func (s Services) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	var req createFlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.VisitorID == 0 || req.CredentialID == 0 {
		httputil.WriteBadRequest(w, "visitor_id and credential_id are required")
		return
	}
	flag, err := s.Flags.Create(r.Context(), req.VisitorID, req.CredentialID, req.Reason, middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, flag)
}

func (s Services) handleActiveFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.Flags.AllActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, flags)
}
