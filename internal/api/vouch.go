package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
)

// Vouch registers the token holder's support for a remote issue.
func (c *Client) Vouch(ctx context.Context, issueID int, token string) (VouchResult, error) {
	const op = "vouch"
	if strings.TrimSpace(token) == "" {
		return VouchResult{}, validationError(op, "authentication token is required to vouch")
	}
	if issueID <= 0 {
		return VouchResult{}, validationError(op, fmt.Sprintf("invalid issue id %d", issueID))
	}

	url := vouchURL(c.resolver.Endpoint(config.NameIssuesAPI), issueID)
	resp, err := c.doRequest(ctx, op, http.MethodPost, url, nil, "application/json", token)
	if err != nil {
		return VouchResult{}, err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return VouchResult{}, err
	}

	result, err := parseVouchResponse(resp.StatusCode, body)
	if err != nil {
		c.log.Warn("api: vouch for issue %d rejected: %v", issueID, err)
		return VouchResult{}, err
	}
	c.log.Info("api: vouched for issue %d", issueID)
	return result, nil
}

// vouchURL strips /api/issues from the issues endpoint and appends
// /api/issues/{id}/vouch.
func vouchURL(issuesAPI string, issueID int) string {
	base := strings.TrimSuffix(strings.TrimRight(issuesAPI, "/"), "/api/issues")
	return fmt.Sprintf("%s/api/issues/%d/vouch", base, issueID)
}

// parseVouchResponse reads JSON bodies leniently: missing fields take
// defaults and a body that is not JSON is passed through as text.
func parseVouchResponse(statusCode int, body []byte) (VouchResult, error) {
	var payload map[string]any
	parsed := json.Valid(body)
	if parsed {
		// Non-object JSON leaves payload nil and every field defaulted.
		_ = json.Unmarshal(body, &payload)
	}

	if !isSuccess(statusCode) {
		detail := string(body)
		if parsed {
			detail = stringOr(payload, "error", "Unknown error")
		}
		return VouchResult{}, &Error{
			Op:         "vouch",
			Kind:       KindProtocol,
			Stage:      StageStatus,
			StatusCode: statusCode,
			Body:       string(body),
			Message:    fmt.Sprintf("HTTP %d - %s", statusCode, detail),
		}
	}

	if !parsed {
		return VouchResult{Text: string(body)}, nil
	}

	message := stringOr(payload, "message", "Success")
	var reported *int
	count := 0
	if n, ok := countField(payload["vouch_count"]); ok {
		count = n
		reported = &count
	}
	userVouched := true
	if b, ok := payload["user_vouched"].(bool); ok {
		userVouched = b
	}

	return VouchResult{
		Text:        fmt.Sprintf("%s - Total vouches: %d", message, count),
		VouchCount:  reported,
		UserVouched: &userVouched,
	}, nil
}

func stringOr(payload map[string]any, key, fallback string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return fallback
}

// countField accepts non-negative integral JSON numbers. Anything else is
// treated as an absent count.
func countField(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
