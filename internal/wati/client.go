// Package wati talks to the WATI WhatsApp Business API: it downloads media
// received through the webhook and sends session replies.
package wati

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MaxMediaSize caps downloaded attachments
const MaxMediaSize = 20 << 20

// ErrMediaDownload is returned when an attachment cannot be fetched
var ErrMediaDownload = errors.New("media download failed")

// APIError is a rejected WATI API call
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wati api http %d: %s", e.StatusCode, e.Message)
}

// Client is a WATI API client
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	sendClient *http.Client
}

// NewClient creates a client. timeout bounds media downloads; replies use a shorter fixed timeout.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:     strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer "),
		httpClient: &http.Client{Timeout: timeout},
		sendClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// DownloadMedia fetches the file behind a webhook media URL
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	if mediaURL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrMediaDownload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: http %d: %s", ErrMediaDownload, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxMediaSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMediaDownload, err)
	}
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%w: file larger than %d bytes", ErrMediaDownload, MaxMediaSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMediaDownload)
	}
	return data, nil
}

type sendResponse struct {
	Result *bool  `json:"result"`
	Info   string `json:"info"`
}

// SendSessionMessage replies with plain text inside the open 24h session of waID
func (c *Client) SendSessionMessage(ctx context.Context, waID, text string) error {
	if c.endpoint == "" {
		return &APIError{Message: "api endpoint not configured"}
	}
	u := c.endpoint + "/api/v1/sendSessionMessage/" + url.PathEscape(waID) +
		"?messageText=" + url.QueryEscape(text)
	body, err := json.Marshal(map[string]string{"messageText": text})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.sendClient.Do(req)
	if err != nil {
		return fmt.Errorf("send session message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	var out sendResponse
	if err := json.Unmarshal(respBody, &out); err == nil && out.Result != nil && !*out.Result {
		msg := out.Info
		if msg == "" {
			msg = "result false"
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	return nil
}
