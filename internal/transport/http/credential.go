package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/platform/httputil"
)

type issueVisitorRequest struct {
	Email string `json:"email"`
}

func (s Services) handleIssueVisitorCredential(w http.ResponseWriter, r *http.Request) {
	visitID, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid visit id")
		return
	}
	var req issueVisitorRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteBadRequest(w, "invalid request body")
			return
		}
	}
	res, err := s.Issuer.IssueVisitor(r.Context(), visitID, req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Reused {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

func (s Services) handleIssueEmployeeCredential(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid employee id")
		return
	}
	res, err := s.Issuer.IssueEmployee(r.Context(), employeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (s Services) handleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid credential id")
		return
	}
	if err := s.Issuer.Revoke(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// handleCredentialImage serves the rendered QR PNG for a code value. Codes are
// normalized and must match an issued format before touching the filesystem.
func (s Services) handleCredentialImage(w http.ResponseWriter, r *http.Request) {
	code := credmodels.Normalize(chi.URLParam(r, "code"))
	if credmodels.Classify(code) == credmodels.KindUnknown || strings.ContainsAny(code, "/\\.") {
		httputil.WriteBadRequest(w, "invalid code value")
		return
	}
	path := s.Renderer.Path(code)
	if _, err := os.Stat(path); err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, map[string]string{"error": "not_found"})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}
