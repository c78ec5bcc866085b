package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// Config holds configuration for creating a Client.
type Config struct {
	// Resolver supplies endpoint URLs. Defaults to the localhost fallback
	// endpoints.
	Resolver Resolver

	// HTTPClient performs requests. Defaults to a client without a
	// timeout: cancellation is left to the caller's context.
	HTTPClient *http.Client

	// Logger defaults to logger.Default().
	Logger *logger.Logger
}

// Client is the networked Service.
type Client struct {
	resolver     Resolver
	httpClient   *http.Client
	log          *logger.Logger
	now          func() time.Time
	newRequestID func() string
}

// NewClient creates a networked client.
func NewClient(cfg Config) *Client {
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = config.NewResolver(config.FallbackEndpoints())
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Client{
		resolver:     resolver,
		httpClient:   httpClient,
		log:          log,
		now:          time.Now,
		newRequestID: uuid.NewString,
	}
}

// Networked reports true.
func (c *Client) Networked() bool {
	return true
}

// doRequest sends one request. A non-empty token is attached as a bearer
// Authorization header.
func (c *Client) doRequest(ctx context.Context, op, method, url string, body io.Reader, contentType, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, connectError(op, fmt.Errorf("failed to create request: %w", err))
	}

	requestID := c.newRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.log.Debug("api: %s %s (request %s, authenticated=%t)", method, url, requestID, token != "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("api: %s failed to reach %s: %v", op, url, err)
		return nil, connectError(op, err)
	}

	c.log.Debug("api: %s responded %s (request %s)", url, resp.Status, requestID)
	return resp, nil
}

// readBody reads and closes the response body.
func readBody(op string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, readError(op, err)
	}
	return body, nil
}

func isSuccess(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
