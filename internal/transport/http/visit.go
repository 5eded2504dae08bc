package httpapi

import (
	"encoding/json"
	"net/http"

	"gatepass/internal/platform/httputil"
	visitmodels "gatepass/internal/visit/models"
	visitservice "gatepass/internal/visit/service"
)

type createVisitRequest struct {
	VisitorID      int64  `json:"visitor_id"`
	SiteID         int64  `json:"site_id"`
	HostEmployeeID *int64 `json:"host_employee_id,omitempty"`
	Purpose        string `json:"purpose"`
}

func (s Services) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	var req createVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	if req.VisitorID == 0 || req.SiteID == 0 {
		httputil.WriteBadRequest(w, "visitor_id and site_id are required")
		return
	}
	visit, err := s.Visits.Create(r.Context(), visitservice.CreateRequest{
		VisitorID:      req.VisitorID,
		SiteID:         req.SiteID,
		HostEmployeeID: req.HostEmployeeID,
		Purpose:        req.Purpose,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, visit)
}

func (s Services) handleGetVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid visit id")
		return
	}
	visit, err := s.Visits.Find(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visit)
}

func (s Services) handleActiveVisits(w http.ResponseWriter, r *http.Request) {
	visits, err := s.Visits.Active(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, visits)
}

type transitionRequest struct {
	Target string `json:"target"`
}

// transitionResponse mirrors the state machine's boolean contract: false is a
// refused transition, not an error.
type transitionResponse struct {
	Transitioned bool   `json:"transitioned"`
	Target       string `json:"target"`
}

func (s Services) handleTransitionVisit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid visit id")
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "invalid request body")
		return
	}
	target := visitmodels.Status(req.Target)
	if !target.Known() {
		httputil.WriteBadRequest(w, "unknown target status")
		return
	}
	moved, err := s.Visits.Transition(r.Context(), id, target)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{Transitioned: moved, Target: req.Target})
}
