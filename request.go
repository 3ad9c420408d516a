package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/chimerakang/pocketbase-go/metrics"
)

// transport is the part of a client shared by every service: where the
// backend lives and how requests reach it.
type transport struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

// do sends one request. payload, when non-nil, is sent as JSON. bearer, when
// non-empty, is sent as the Authorization header. label names the collection
// in logs and metrics.
func (t *transport) do(ctx context.Context, method, path, label, bearer string, payload any) (*response, error) {
	url := t.baseURL + path

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("pocketbase: encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("pocketbase: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.metrics.ObserveRequest(method, label, 0, time.Since(start))
		t.logger.DebugContext(ctx, "request failed", "method", method, "url", url, "error", err)
		return nil, &TransportError{Method: method, URL: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	t.metrics.ObserveRequest(method, label, resp.StatusCode, elapsed)
	if err != nil {
		return nil, &TransportError{Method: method, URL: url, Err: fmt.Errorf("read body: %w", err)}
	}

	t.logger.DebugContext(ctx, "request",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", elapsed,
	)
	return &response{status: resp.StatusCode, body: data}, nil
}

// decode interprets a response as E on success or as the backend error
// shape otherwise. Bodies matching neither produce a *DecodeError.
func decode[E any](resp *response) (E, error) {
	var out E
	if !resp.ok() {
		return out, resp.err()
	}
	err := json.Unmarshal(resp.body, &out)
	if err == nil {
		return out, nil
	}
	// Some endpoints answer 200 with an error body.
	var re ResponseError
	if json.Unmarshal(resp.body, &re) == nil && re.Status != 0 && re.Message != "" {
		return out, &HTTPError{Status: re.Status, Message: re.Message, Data: re.Data}
	}
	return out, &DecodeError{Status: resp.status, Body: string(resp.body), Err: err}
}

// err converts a non-2xx response into an error.
func (r *response) err() error {
	var re ResponseError
	if err := json.Unmarshal(r.body, &re); err != nil {
		return &DecodeError{Status: r.status, Body: string(r.body), Err: err}
	}
	if re.Status == 0 && re.Message == "" {
		return &DecodeError{Status: r.status, Body: string(r.body), Err: errors.New("response is not an error object")}
	}
	status := re.Status
	if status == 0 {
		status = r.status
	}
	return &HTTPError{Status: status, Message: re.Message, Data: re.Data}
}
