package httpapi

import (
	"net/http"
	"strconv"

	"gatepass/internal/platform/httputil"
)

func (s Services) handleLateCount(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid employee id")
		return
	}
	report, err := s.Attendance.LateCount(r.Context(), employeeID, queryInt(r, "window_days"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (s Services) handleEarnings(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := pathID(r)
	if !ok {
		httputil.WriteBadRequest(w, "invalid employee id")
		return
	}
	est, err := s.Attendance.EstimateEarnings(r.Context(), employeeID, queryInt(r, "window_days"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, est)
}

// queryInt returns the named query parameter, or zero when absent or bad so
// the service applies its default.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
