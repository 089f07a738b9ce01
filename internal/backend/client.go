package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voltswap/voltswap/internal/logging"
	"github.com/voltswap/voltswap/internal/metrics"
	"github.com/voltswap/voltswap/internal/retry"
)

// Client calls the station backend's JSON API with bearer authentication.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client. timeout applies per call.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ExecutePayment finalizes an approved gateway payment. This is the money
// path: it is never retried automatically. A non-2xx response returns a
// *Error carrying the remote message; a 2xx response is returned as-is so
// the caller can inspect the body status.
func (c *Client) ExecutePayment(ctx context.Context, paymentID, payerID, token string) (*ExecuteResult, error) {
	q := url.Values{}
	q.Set("paymentId", paymentID)
	q.Set("PayerID", payerID)

	var result ExecuteResult
	if err := c.do(ctx, "execute_payment", http.MethodPost,
		"/api/payment/execute?"+q.Encode(), token, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateUserPackage activates a purchased package for a user. Never retried
// automatically.
func (c *Client) CreateUserPackage(ctx context.Context, token string, req CreateUserPackageRequest) (*ActivationResult, error) {
	var result ActivationResult
	if err := c.do(ctx, "create_user_package", http.MethodPost,
		"/api/user-packages/create", token, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePayment starts a gateway payment for a package and returns the
// approval redirect URL.
func (c *Client) CreatePayment(ctx context.Context, token string, packageID int64, returnURL, cancelURL string) (*PaymentInit, error) {
	body := map[string]any{
		"packageId": packageID,
		"returnUrl": returnURL,
		"cancelUrl": cancelURL,
	}

	var result PaymentInit
	if err := c.do(ctx, "create_payment", http.MethodPost,
		"/api/payment/create", token, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBatteries fetches the full battery inventory. Idempotent, so transient
// failures are retried with backoff.
func (c *Client) ListBatteries(ctx context.Context, token string) ([]Battery, error) {
	var batteries []Battery
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		batteries = nil
		err := c.do(ctx, "list_batteries", http.MethodGet, "/api/batteries", token, nil, &batteries)
		if err == nil {
			return nil
		}
		// 4xx means the request itself is wrong; retrying won't help.
		var be *Error
		if errors.As(err, &be) && be.StatusCode >= 400 && be.StatusCode < 500 {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return batteries, nil
}

// Ping checks backend reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/batteries", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &Error{Op: "ping", StatusCode: resp.StatusCode}
	}
	return nil
}

// do performs one JSON request. Non-2xx responses are decoded into *Error
// with the remote message when the body carries one.
func (c *Client) do(ctx context.Context, op, method, path, token string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: %s: marshal request: %w", op, err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("backend: %s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("backend: %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.BackendRequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("backend: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BackendRequestsTotal.WithLabelValues(op, "error").Inc()
		be := &Error{Op: op, StatusCode: resp.StatusCode}
		var remote struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(raw, &remote) == nil {
			if remote.Message != "" {
				be.Message = remote.Message
			} else {
				be.Message = remote.Error
			}
		}
		logging.L(ctx).Warn("backend call failed",
			"op", op, "status", resp.StatusCode, "message", be.Message)
		return be
	}

	metrics.BackendRequestsTotal.WithLabelValues(op, "ok").Inc()

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("backend: %s: decode response: %w", op, err)
		}
	}
	return nil
}
