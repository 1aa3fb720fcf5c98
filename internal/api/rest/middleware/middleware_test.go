package middleware

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	"github.com/danilovkiri/dk-go-donations/internal/storage/v1/modelstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenHandler(t *testing.T) (*TokenHandler, *secretary.Secretary) {
	sec, err := secretary.NewSecretaryService(&config.SecretConfig{SecretKey: "test_key", TokenTTL: time.Minute})
	require.NoError(t, err)
	th, err := NewTokenHandler(sec)
	require.NoError(t, err)
	return th, sec
}

func TestTokenHandle(t *testing.T) {
	th, sec := newTokenHandler(t)
	token, err := sec.NewToken("U1", modelstorage.RoleUser)
	require.NoError(t, err)

	var seenUser string
	h := th.TokenHandle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seenUser = claims.UserID
	}))

	tests := []struct {
		name       string
		header     string
		expected   int
		expectUser string
	}{
		{name: "valid token", header: "Bearer " + token, expected: http.StatusOK, expectUser: "U1"},
		{name: "missing header", header: "", expected: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer abc.def.ghi", expected: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenUser = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
			assert.Equal(t, tt.expectUser, seenUser)
		})
	}
}

func TestAdminOnly(t *testing.T) {
	th, sec := newTokenHandler(t)
	h := th.TokenHandle(AdminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	tests := []struct {
		role     string
		expected int
	}{
		{role: modelstorage.RoleAdmin, expected: http.StatusNoContent},
		{role: modelstorage.RoleUser, expected: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, err := sec.NewToken("U1", tt.role)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestDecompressHandle(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"orderId":"order_1"}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	var body []byte
	h := DecompressHandle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = ioutil.ReadAll(r.Body)
	}))
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orderId":"order_1"}`, string(body))

	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
