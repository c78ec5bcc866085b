package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
)

type sendOTPBody struct {
	MobileNumber string          `json:"mobile_number"`
	Type         string          `json:"type"`
	UserData     json.RawMessage `json:"user_data,omitempty"`
}

// verifyOTPBody always carries otp, even when it is empty.
type verifyOTPBody struct {
	MobileNumber string          `json:"mobile_number"`
	OTP          string          `json:"otp"`
	Type         string          `json:"type"`
	UserData     json.RawMessage `json:"user_data,omitempty"`
}

// SendOTP asks the auth service to send a one-time password.
func (c *Client) SendOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error) {
	body := sendOTPBody{MobileNumber: req.MobileNumber, Type: req.Type, UserData: req.UserData}
	return c.postJSON(ctx, "send otp", c.resolver.Endpoint(config.NameSendOTP), body)
}

// VerifyOTP checks a one-time password. A successful body carries the
// bearer token for later calls.
func (c *Client) VerifyOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error) {
	body := verifyOTPBody{MobileNumber: req.MobileNumber, OTP: req.OTP, Type: req.Type, UserData: req.UserData}
	return c.postJSON(ctx, "verify otp", c.resolver.Endpoint(config.NameVerifyOTP), body)
}

// Profile returns the profile of the token holder.
func (c *Client) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	const op = "profile"
	if strings.TrimSpace(token) == "" {
		return nil, validationError(op, "authentication token is required to load the profile")
	}

	resp, err := c.doRequest(ctx, op, http.MethodGet, c.resolver.Endpoint(config.NameProfile), nil, "", token)
	if err != nil {
		return nil, err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return nil, err
	}
	return c.passthrough(op, resp.StatusCode, body)
}

func (c *Client) postJSON(ctx context.Context, op, url string, payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, encodingError(op, "request", err)
	}

	resp, err := c.doRequest(ctx, op, http.MethodPost, url, bytes.NewReader(data), "application/json", "")
	if err != nil {
		return nil, err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return nil, err
	}
	return c.passthrough(op, resp.StatusCode, body)
}

// passthrough hands JSON bodies to the caller whatever the status, since
// the auth service reports failures as JSON. A non-JSON success body is
// wrapped as a JSON string; a non-JSON failure is a protocol error.
func (c *Client) passthrough(op string, statusCode int, body []byte) (json.RawMessage, error) {
	if json.Valid(body) {
		if !isSuccess(statusCode) {
			c.log.Warn("api: %s returned status %d", op, statusCode)
		}
		return json.RawMessage(bytes.Clone(body)), nil
	}

	if isSuccess(statusCode) {
		wrapped, err := json.Marshal(string(body))
		if err != nil {
			return nil, parseError(op, body, err)
		}
		return wrapped, nil
	}

	return nil, &Error{
		Op:         op,
		Kind:       KindProtocol,
		Stage:      StageStatus,
		StatusCode: statusCode,
		Body:       string(body),
		Message:    fmt.Sprintf("HTTP %d - %s", statusCode, string(body)),
	}
}
