package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authserver/pkg/platform/sentinel"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("db failed: %w", sentinel.ErrStorage))

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "internal_error", body["error"])
		_, ok := body["error_description"]
		assert.False(t, ok, "expected error_description to be omitted for internal errors")
	})

	t.Run("bad request includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("invalid input: %w", sentinel.ErrUnsupportedValue))

		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "bad_request", body["error"])
		assert.Contains(t, body["error_description"], "invalid input")
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{sentinel.ErrNotFound, http.StatusNotFound},
		{sentinel.ErrConstraintViolation, http.StatusConflict},
		{sentinel.ErrUnsupportedValue, http.StatusBadRequest},
		{sentinel.ErrCorruptData, http.StatusInternalServerError},
		{sentinel.ErrConsistencyViolation, http.StatusInternalServerError},
		{sentinel.ErrStorage, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		status, _ := StatusFor(fmt.Errorf("wrapped: %w", tc.err))
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(r, &v))
	assert.Equal(t, "x", v.Name)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"nme":"x"}`))
	assert.ErrorIs(t, DecodeJSON(r, &v), sentinel.ErrUnsupportedValue)

	r = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{`))
	assert.ErrorIs(t, DecodeJSON(r, &v), sentinel.ErrUnsupportedValue)
}
