// Package client calls a running validator over HTTP.
package client

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/Brownie44l1/image-validator/internal/inference"
	"github.com/go-resty/resty/v2"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"-"`
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server response status code: %d, error: %s (%s)", e.Status, e.Err, e.Message)
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
	}
}

// Validate uploads data and returns the server's prediction.
func (c *Client) Validate(ctx context.Context, filename string, data []byte) (*inference.Prediction, error) {
	var pred inference.Prediction
	var apiErr APIError

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetResult(&pred).
		SetError(&apiErr).
		Post("/validate-image/")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}
	return &pred, nil
}

// Health reports whether the server has its model loaded.
func (c *Client) Health(ctx context.Context) (bool, error) {
	var health struct {
		Status      string `json:"status"`
		ModelLoaded bool   `json:"model_loaded"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&health).
		Get("/health")
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return false, &APIError{Status: resp.StatusCode(), Err: resp.Status()}
	}
	return health.ModelLoaded, nil
}
