package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"gatepass/internal/platform/httputil"
	"gatepass/pkg/audit"
)

const defaultAuditLimit = 100

func (s Services) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		Action:      audit.Action(q.Get("action")),
		SubjectType: q.Get("subject_type"),
		Limit:       defaultAuditLimit,
	}
	if v := q.Get("subject_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.WriteBadRequest(w, "invalid subject_id")
			return
		}
		f.SubjectID = id
	}
	if n := queryInt(r, "limit"); n > 0 {
		f.Limit = n
	}
	for param, dst := range map[string]*time.Time{"from": &f.From, "to": &f.To} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httputil.WriteBadRequest(w, "invalid "+param+" timestamp")
				return
			}
			*dst = t
		}
	}

	events, err := s.AuditLog.List(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}
