// Package api talks to the remote issue-tracking service.
//
// Service has two implementations: Client performs real HTTP calls and
// Simulated answers locally for builds without networking. Both return the
// same shapes, so callers only tell them apart through Networked.
package api

import (
	"context"
	"encoding/json"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// Resolver yields endpoint URLs by name. *config.Resolver implements it.
type Resolver interface {
	Endpoint(name string) string
}

// OTPRequest is the input of the send and verify OTP calls. OTP is ignored
// by SendOTP and always sent by VerifyOTP.
type OTPRequest struct {
	MobileNumber string          `json:"mobile_number"`
	OTP          string          `json:"otp,omitempty"`
	Type         string          `json:"type"`
	UserData     json.RawMessage `json:"user_data,omitempty"`
}

// VouchResult is the outcome of a vouch call.
type VouchResult struct {
	// Text is the user-facing result: "<message> - Total vouches: <n>"
	// for structured bodies, the raw body otherwise.
	Text string `json:"message"`

	// VouchCount is the count reported by the server, when it sent one.
	VouchCount *int `json:"vouch_count,omitempty"`

	// UserVouched reports whether the server tracked this user's vouch.
	UserVouched *bool `json:"user_vouched,omitempty"`
}

// Service is the set of remote operations. Every method is a blocking
// call; independent calls may run concurrently.
type Service interface {
	FetchIssues(ctx context.Context) ([]issue.Issue, error)
	CreateIssue(ctx context.Context, req issue.CreateRequest, token string) (string, error)
	Vouch(ctx context.Context, issueID int, token string) (VouchResult, error)
	SendOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error)
	VerifyOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error)
	Profile(ctx context.Context, token string) (json.RawMessage, error)
	TestConnection(ctx context.Context) (string, error)
	TestSubmission(ctx context.Context) (string, error)

	// Networked reports whether calls reach the network.
	Networked() bool
}

var (
	_ Service = (*Client)(nil)
	_ Service = (*Simulated)(nil)
)

// NewService returns the implementation selected by settings.
func NewService(settings config.Settings, resolver Resolver, log *logger.Logger) Service {
	if log == nil {
		log = logger.Default()
	}
	if !settings.Networked {
		log.Info("api: networking disabled, remote calls are simulated")
		return NewSimulated(log)
	}
	return NewClient(Config{Resolver: resolver, Logger: log})
}
