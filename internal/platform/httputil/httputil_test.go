package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/pkg/sentinel"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", fmt.Errorf("%w: credential abc", sentinel.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", fmt.Errorf("%w: already signed in", sentinel.ErrConflict), http.StatusConflict, "conflict"},
		{"invalid state", fmt.Errorf("%w: visit is terminal", sentinel.ErrInvalidState), http.StatusUnprocessableEntity, "invalid_state"},
		{"expired", fmt.Errorf("%w: code lapsed", sentinel.ErrExpired), http.StatusGone, "expired"},
		{"storage unavailable", fmt.Errorf("%w: dial tcp refused", sentinel.ErrUnavailable), http.StatusServiceUnavailable, "storage_unavailable"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCode, decodeBody(t, rec)["error"])
		})
	}
}

func TestWriteErrorHidesServerDetails(t *testing.T) {
	t.Run("5xx omits the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, fmt.Errorf("%w: pq: connection reset", sentinel.ErrUnavailable))

		body := decodeBody(t, rec)
		assert.Empty(t, body["error_description"])
	})

	t.Run("4xx carries the description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, fmt.Errorf("%w: visit 9 not found", sentinel.ErrNotFound))

		body := decodeBody(t, rec)
		assert.Contains(t, body["error_description"], "visit 9")
	})
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteBadRequest(rec, "direction must be signin or signout")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "bad_request", body["error"])
	assert.Equal(t, "direction must be signin or signout", body["error_description"])
}

func TestWriteJSONNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
