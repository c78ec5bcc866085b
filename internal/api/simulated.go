package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// Simulated is the Service used when networking is disabled. It validates
// input like Client does and answers with labelled canned responses.
type Simulated struct {
	log *logger.Logger
}

// NewSimulated creates a simulated service.
func NewSimulated(log *logger.Logger) *Simulated {
	if log == nil {
		log = logger.Default()
	}
	return &Simulated{log: log}
}

// Networked reports false.
func (s *Simulated) Networked() bool {
	return false
}

// FetchIssues returns an empty list.
func (s *Simulated) FetchIssues(ctx context.Context) ([]issue.Issue, error) {
	s.log.Info("api: simulated fetch, returning no remote issues")
	return []issue.Issue{}, nil
}

// CreateIssue validates and decodes the request but sends nothing.
func (s *Simulated) CreateIssue(ctx context.Context, req issue.CreateRequest, token string) (string, error) {
	const op = "create issue"
	if err := req.Validate(); err != nil {
		return "", validationError(op, err.Error())
	}
	if _, _, err := encodeCreateRequest(op, req); err != nil {
		return "", err
	}

	s.log.Info("api: simulated submission of issue %q", req.Title)
	body, err := json.Marshal(map[string]any{
		"message":   "Issue received but not sent (simulated)",
		"simulated": true,
		"title":     req.Title,
	})
	if err != nil {
		return "", parseError(op, nil, err)
	}
	return string(body), nil
}

// Vouch requires a token like Client does and reports a simulated result.
func (s *Simulated) Vouch(ctx context.Context, issueID int, token string) (VouchResult, error) {
	if strings.TrimSpace(token) == "" {
		return VouchResult{}, validationError("vouch", "authentication token is required to vouch")
	}
	if issueID <= 0 {
		return VouchResult{}, validationError("vouch", fmt.Sprintf("invalid issue id %d", issueID))
	}
	s.log.Info("api: simulated vouch for issue %d", issueID)
	return VouchResult{
		Text: fmt.Sprintf("Simulated vouch for issue %d (API client not enabled)", issueID),
	}, nil
}

// SimulatedToken is the bearer token returned by a simulated VerifyOTP.
const SimulatedToken = "fake_jwt_token_for_testing"

// SimulatedCivicID is the civic id of the simulated user.
const SimulatedCivicID = "CIV123456789"

// SendOTP reports success without contacting the auth service.
func (s *Simulated) SendOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error) {
	s.log.Info("api: simulated OTP send to %s", req.MobileNumber)
	return marshalRaw("send otp", map[string]any{
		"success":       true,
		"message":       "OTP sent successfully (simulated)",
		"mobile_number": req.MobileNumber,
	})
}

// VerifyOTP accepts any code and returns SimulatedToken.
func (s *Simulated) VerifyOTP(ctx context.Context, req OTPRequest) (json.RawMessage, error) {
	s.log.Info("api: simulated OTP verification for %s", req.MobileNumber)
	return marshalRaw("verify otp", map[string]any{
		"success": true,
		"message": "OTP verified successfully (simulated)",
		"token":   SimulatedToken,
		"user": map[string]any{
			"mobile_number": req.MobileNumber,
			"civic_id":      SimulatedCivicID,
		},
	})
}

// Profile returns a placeholder profile.
func (s *Simulated) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	if strings.TrimSpace(token) == "" {
		return nil, validationError("profile", "authentication token is required to load the profile")
	}
	return marshalRaw("profile", map[string]any{
		"simulated": true,
		"user": map[string]any{
			"civic_id":  SimulatedCivicID,
			"full_name": "Simulated User",
		},
	})
}

// TestConnection reports that no HTTP client is available.
func (s *Simulated) TestConnection(ctx context.Context) (string, error) {
	return "HTTP client not available on this build (simulated)", nil
}

// TestSubmission validates the sample issue without sending it.
func (s *Simulated) TestSubmission(ctx context.Context) (string, error) {
	body, err := s.CreateIssue(ctx, SampleRequest(), "")
	if err != nil {
		return "", err
	}
	return "Test issue not sent: HTTP client not available (simulated). Response: " + body, nil
}

func marshalRaw(op string, v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, parseError(op, nil, err)
	}
	return data, nil
}
