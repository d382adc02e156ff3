package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
)

type captured struct {
	path   string
	query  string
	apiKey string
	body   map[string]any
}

func newGateway(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]captured) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []captured
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		calls = append(calls, captured{path: r.URL.Path, query: r.URL.RawQuery, apiKey: r.Header.Get("x-api-key"), body: body})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "k-123", Timeout: 2 * time.Second}), &calls
}

func TestSubscribed(t *testing.T) {
	status := "OK"
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	ok, err := c.Subscribed(context.Background(), "a+b@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/subscribe", (*calls)[0].path)
	assert.Equal(t, "email=a%2Bb%40x.com", (*calls)[0].query)
	assert.Equal(t, "k-123", (*calls)[0].apiKey)

	status = StatusFail
	ok, err = c.Subscribed(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubscribe_UpstreamError(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	err := c.Subscribe(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestSendOTP(t *testing.T) {
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, c.SendOTP(context.Background(), "a@x.com", "123456"))
	assert.Equal(t, "/send-otp", (*calls)[0].path)
	assert.Equal(t, "123456", (*calls)[0].body["otp"])
}

func TestUploadEventImage(t *testing.T) {
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"image_url": "https://cdn/9/image.png"})
	})
	u, err := c.UploadEventImage(context.Background(), 9, "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/9/image.png", u)
	assert.Equal(t, float64(9), (*calls)[0].body["event_id"])
}

func TestUploadEventImage_NoURLIsUploadError(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	_, err := c.UploadEventImage(context.Background(), 9, "x")
	assert.ErrorIs(t, err, apperr.ErrUpload)
}

func TestUploadTicketQR_Non200IsUploadError(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"image_url": "u"})
	})
	_, err := c.UploadTicketQR(context.Background(), 1, 2, "TICKET-1-AAAAAAAAA", []byte{0x89, 'P', 'N', 'G'})
	assert.ErrorIs(t, err, apperr.ErrUpload)
}

func TestUploadTicketQR_EncodesPNG(t *testing.T) {
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"image_url": "s3://qr/1/2.png"})
	})
	png := []byte{0x89, 'P', 'N', 'G'}
	u, err := c.UploadTicketQR(context.Background(), 1, 2, "TICKET-1-AAAAAAAAA", png)
	require.NoError(t, err)
	assert.Equal(t, "s3://qr/1/2.png", u)
	assert.Equal(t, base64.StdEncoding.EncodeToString(png), (*calls)[0].body["image"])
	assert.Equal(t, float64(2), (*calls)[0].body["user_id"])
	assert.Equal(t, "TICKET-1-AAAAAAAAA", (*calls)[0].body["ticket_code"])
}

func TestTicketQRURL(t *testing.T) {
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"presigned_url": "https://signed"})
	})
	u, err := c.TicketQRURL(context.Background(), 3, 4, "TICKET-1-BBBBBBBBB")
	require.NoError(t, err)
	assert.Equal(t, "https://signed", u)
	assert.Equal(t, "/get-qr-code", (*calls)[0].path)
	assert.Equal(t, "TICKET-1-BBBBBBBBB", (*calls)[0].body["ticket_code"])
}

func TestTicketQRURL_Empty(t *testing.T) {
	c, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})
	_, err := c.TicketQRURL(context.Background(), 3, 4, "TICKET-1-BBBBBBBBB")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}

func TestSendActivity(t *testing.T) {
	c, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	err := c.Send(context.Background(), activity.Record{UserID: "5", Activity: "User Registered", ExtraData: map[string]string{"username": "alice"}})
	require.NoError(t, err)
	assert.Equal(t, "/log-activity", (*calls)[0].path)
	assert.Equal(t, "User Registered", (*calls)[0].body["activity"])
	assert.Equal(t, "5", (*calls)[0].body["user_id"])
}

func TestUnreachable(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Subscribed(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, apperr.ErrUpstream)
}
