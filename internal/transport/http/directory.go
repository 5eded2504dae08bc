package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"gatepass/internal/directory"
	"gatepass/internal/platform/httputil"
)

type createVisitorRequest struct {
	FullName      string `json:"full_name"`
	NationalID    string `json:"national_id"`
	ContactNumber string `json:"contact_number"`
}

func (s Services) handleCreateVisitor(w http.ResponseWriter, r *http.Request) {
	var req createVisitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		httputil.WriteBadRequest(w, "full_name is required")
		return
	}
	v, err := s.Directory.CreateVisitor(r.Context(), directory.Visitor{
		FullName:      strings.TrimSpace(req.FullName),
		NationalID:    strings.TrimSpace(req.NationalID),
		ContactNumber: strings.TrimSpace(req.ContactNumber),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, v)
}

type createEmployeeRequest struct {
	Name       string  `json:"name"`
	HourlyRate float64 `json:"hourly_rate"`
	Department string  `json:"department"`
}

func (s Services) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req createEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	if req.HourlyRate < 0 {
		httputil.WriteBadRequest(w, "hourly_rate cannot be negative")
		return
	}
	e, err := s.Directory.CreateEmployee(r.Context(), directory.Employee{
		Name:       strings.TrimSpace(req.Name),
		HourlyRate: req.HourlyRate,
		Department: strings.TrimSpace(req.Department),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, e)
}

type createSiteRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (s Services) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}
	site, err := s.Directory.CreateSite(r.Context(), directory.Site{
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, site)
}
