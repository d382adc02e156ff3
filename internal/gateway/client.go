// Package gateway talks to the external notification, subscription and image gateway.
// Every call is a JSON POST authenticated with the x-api-key header.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
)

// StatusFail is the subscription status the gateway reports for unsubscribed emails.
const StatusFail = "FAIL"

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type subscribeResponse struct {
	Status string `json:"status"`
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
}

type presignResponse struct {
	PresignedURL string `json:"presigned_url"`
	Error        string `json:"error"`
}

// Subscribe asks the gateway to start the notification subscription for email.
func (c *Client) Subscribe(ctx context.Context, email string) error {
	_, err := c.post(ctx, "/subscribe?email="+url.QueryEscape(email), struct{}{}, nil)
	return err
}

// Subscribed reports whether email has an active notification subscription.
func (c *Client) Subscribed(ctx context.Context, email string) (bool, error) {
	var out subscribeResponse
	if _, err := c.post(ctx, "/subscribe?email="+url.QueryEscape(email), struct{}{}, &out); err != nil {
		return false, err
	}
	return out.Status != StatusFail, nil
}

// SendOTP delivers a login code to email.
func (c *Client) SendOTP(ctx context.Context, email, code string) error {
	_, err := c.post(ctx, "/send-otp", map[string]string{"email": email, "otp": code}, nil)
	return err
}

// UploadEventImage stores the event image and returns its URL.
func (c *Client) UploadEventImage(ctx context.Context, eventID int64, image string) (string, error) {
	body := map[string]any{"image": image, "event_id": eventID}
	return c.upload(ctx, "/create-event", body)
}

// UploadTicketQR stores the PNG QR code of a ticket and returns its URL.
func (c *Client) UploadTicketQR(ctx context.Context, eventID, userID int64, code string, png []byte) (string, error) {
	body := map[string]any{
		"event_id":    eventID,
		"user_id":     userID,
		"ticket_code": code,
		"image":       base64.StdEncoding.EncodeToString(png),
	}
	return c.upload(ctx, "/create-ticket", body)
}

// TicketQRURL returns a time-limited signed URL for the stored ticket QR code.
func (c *Client) TicketQRURL(ctx context.Context, eventID, userID int64, code string) (string, error) {
	var out presignResponse
	body := map[string]any{"event_id": eventID, "user_id": userID, "ticket_code": code}
	if _, err := c.post(ctx, "/get-qr-code", body, &out); err != nil {
		return "", err
	}
	if out.PresignedURL == "" {
		return "", fmt.Errorf("get-qr-code: empty presigned_url: %w", apperr.ErrUpstream)
	}
	return out.PresignedURL, nil
}

// Send implements activity.Sink against the gateway log endpoint.
func (c *Client) Send(ctx context.Context, rec activity.Record) error {
	body := map[string]any{
		"user_id":    rec.UserID,
		"activity":   rec.Activity,
		"extra_data": rec.ExtraData,
	}
	_, err := c.post(ctx, "/log-activity", body, nil)
	return err
}

func (c *Client) upload(ctx context.Context, path string, body any) (string, error) {
	var out imageResponse
	status, err := c.post(ctx, path, body, &out)
	if err != nil {
		return "", fmt.Errorf("%s: %v: %w", path, err, apperr.ErrUpload)
	}
	if status != http.StatusOK || out.ImageURL == "" {
		return "", fmt.Errorf("%s: status %d without image_url: %w", path, status, apperr.ErrUpload)
	}
	return out.ImageURL, nil
}

// post sends body as JSON and decodes a 2xx response into out when out is non-nil.
func (c *Client) post(ctx context.Context, path string, body, out any) (int, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", path, err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("call %s: %v: %w", path, err, apperr.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("call %s: status %d: %s: %w", path, resp.StatusCode, bytes.TrimSpace(snippet), apperr.ErrUpstream)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode %s: %v: %w", path, err, apperr.ErrUpstream)
		}
	}
	return resp.StatusCode, nil
}
