package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/token"
)

func authed(r *http.Request, userID int64) *http.Request {
	return r.WithContext(token.WithClaims(r.Context(), &token.Claims{UserID: userID}))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func post(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
}

func TestHandler_Flow(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, zap.NewNop().Sugar())

	rec := httptest.NewRecorder()
	h.Create(rec, authed(post(`{"event_id":1}`), 4))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Message string         `json:"message"`
		Ticket  map[string]any `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Ticket created successfully", created.Message)
	assert.NotEmpty(t, created.Ticket["ticket_code"])

	rec = httptest.NewRecorder()
	h.List(rec, authed(httptest.NewRequest(http.MethodGet, "/ticket", nil), 4))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tickets"`)

	rec = httptest.NewRecorder()
	h.Get(rec, withID(authed(httptest.NewRequest(http.MethodGet, "/ticket/1", nil), 4), "1"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, withID(authed(httptest.NewRequest(http.MethodGet, "/ticket/1", nil), 5), "1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.QRCodeURL(rec, authed(post(`{"event_id":1}`), 4))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "presigned_url")
}

func TestHandler_Statuses(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, zap.NewNop().Sugar())

	cases := []struct {
		name   string
		fn     http.HandlerFunc
		req    *http.Request
		status int
	}{
		{"missing event id", h.Create, authed(post(`{}`), 4), http.StatusBadRequest},
		{"malformed", h.Create, authed(post(`{`), 4), http.StatusBadRequest},
		{"unknown event", h.Create, authed(post(`{"event_id":77}`), 4), http.StatusNotFound},
		{"not subscribed", h.Create, authed(post(`{"event_id":1}`), 9), http.StatusForbidden},
		{"no ticket for qr", h.QRCodeURL, authed(post(`{"event_id":1}`), 4), http.StatusNotFound},
		{"no claims", h.List, httptest.NewRequest(http.MethodGet, "/ticket", nil), http.StatusUnauthorized},
		{"bad id", h.Get, withID(authed(httptest.NewRequest(http.MethodGet, "/ticket/x", nil), 4), "x"), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.fn(rec, tc.req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	f.qr.fail = true
	rec := httptest.NewRecorder()
	h.Create(rec, authed(post(`{"event_id":1}`), 4))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestEncodeQR(t *testing.T) {
	png, err := EncodeQR("TICKET-1-ABCDEFGHI")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}
