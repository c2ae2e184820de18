package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	maxDeliveryAttempts = 3
	maxResponseBodyLen  = 64 << 10
)

// Result is the terminal outcome of one delivery loop run.
type Result struct {
	Success      bool
	Attempts     int
	Status       int
	Error        string
	ResponseBody string
}

// Deliverer POSTs an OutboundEvent to the fixed downstream URL with bounded
// retry. Attempts are strictly sequential; the body is identical on every
// attempt.
type Deliverer struct {
	url    string
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewDeliverer builds a Deliverer for the configured downstream URL.
func NewDeliverer(url string, client *http.Client) (*Deliverer, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Deliverer{
		url:    url,
		client: client,
		sleep:  sleepContext,
	}, nil
}

// URL returns the downstream endpoint this deliverer targets.
func (d *Deliverer) URL() string {
	return d.url
}

// Deliver runs the retry loop: up to 3 attempts, 2^attempt seconds of backoff
// between failures, none after the last. A 2xx response stops immediately.
// The returned error is non-nil only when the loop could not run to a
// terminal state (encode failure or context cancellation mid-backoff).
func (d *Deliverer) Deliver(ctx context.Context, token string, event *OutboundEvent) (Result, error) {
	if event == nil {
		return Result{}, fmt.Errorf("event is required")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return Result{}, fmt.Errorf("encoding event: %w", err)
	}

	var result Result
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		result.Attempts = attempt

		status, respBody, err := d.post(ctx, token, body)
		switch {
		case err != nil:
			result.Status = 0
			result.Error = fmt.Sprintf("network error: %s", err.Error())
		case status >= 200 && status < 300:
			result.Success = true
			result.Status = status
			result.ResponseBody = respBody
			result.Error = ""
			return result, nil
		default:
			result.Status = status
			result.Error = fmt.Sprintf("HTTP %d: %s", status, respBody)
		}

		if attempt < maxDeliveryAttempts {
			wait := time.Duration(1<<uint(attempt)) * time.Second
			if err := d.sleep(ctx, wait); err != nil {
				return result, err
			}
		}
	}
	return result, nil
}

func (d *Deliverer) post(ctx context.Context, token string, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
