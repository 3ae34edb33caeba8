package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	circuit "github.com/rubyist/circuitbreaker"
)

// ErrCircuitOpen is returned while the breaker refuses calls to a failing upstream.
var ErrCircuitOpen = errors.New("upstream circuit breaker is open")

// HttpClient is a JSON client for third-party APIs. Every call goes through a
// consecutive-failure circuit breaker.
type HttpClient struct {
	BaseURL  string
	headers  map[string]string
	username string
	password string
	cb       *circuit.Breaker
	breaker  *circuit.HTTPClient
}

func NewHttpClient(baseURL string, timeout time.Duration, tripThreshold int64) *HttpClient {
	cb := circuit.NewConsecutiveBreaker(tripThreshold)
	return &HttpClient{
		BaseURL: baseURL,
		headers: map[string]string{},
		cb:      cb,
		breaker: circuit.NewHTTPClientWithBreaker(cb, timeout, &http.Client{Timeout: timeout}),
	}
}

func (c *HttpClient) WithBasicAuth(username, password string) *HttpClient {
	c.username = username
	c.password = password
	return c
}

func (c *HttpClient) WithHeader(key, value string) *HttpClient {
	c.headers[key] = value
	return c
}

// Tripped reports whether the breaker is currently open.
func (c *HttpClient) Tripped() bool {
	return c.cb.Tripped()
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) DecodeJSON(target any) error {
	return json.Unmarshal(r.Body, target)
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (c *HttpClient) GET(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *HttpClient) POST(ctx context.Context, path string, body any) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HttpClient) do(ctx context.Context, method, path string, body any) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.breaker.Do(req)
	if err != nil {
		if errors.Is(err, circuit.ErrBreakerOpen) {
			return nil, ErrCircuitOpen
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// ErrorMessage extracts a human readable message from a JSON error body.
func ErrorMessage(resp *Response) string {
	var errResp struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := resp.DecodeJSON(&errResp); err != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if errResp.Error.Description != "" {
		return errResp.Error.Description
	}
	if errResp.Message != "" {
		return errResp.Message
	}
	if errResp.Error.Code != "" {
		return errResp.Error.Code
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
