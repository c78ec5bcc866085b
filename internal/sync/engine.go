// Package sync provides the operations callers invoke, tying the endpoint
// resolver, the remote service and the local cache together.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Quanta-Naut/CivicBridge-App/internal/api"
	"github.com/Quanta-Naut/CivicBridge-App/internal/cache"
	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
)

// Engine handles every caller-facing operation. It holds no state of its
// own beyond its collaborators and is safe for concurrent use.
type Engine struct {
	cache    *cache.Store
	client   api.Service
	resolver *config.Resolver
}

// NewEngine creates a new engine.
func NewEngine(store *cache.Store, client api.Service, resolver *config.Resolver) (*Engine, error) {
	if store == nil {
		return nil, errors.New("sync: cache is required")
	}
	if client == nil {
		return nil, errors.New("sync: remote client is required")
	}
	if resolver == nil {
		return nil, errors.New("sync: endpoint resolver is required")
	}
	return &Engine{cache: store, client: client, resolver: resolver}, nil
}

// EndpointInfo describes the active endpoint configuration.
type EndpointInfo struct {
	Environment config.Environment `json:"environment"`
	Tier        config.Tier        `json:"tier"`
	Networked   bool               `json:"networked"`
	Endpoints   config.EndpointSet `json:"endpoints"`
}

// Endpoints reports the selected environment and its endpoint set.
func (e *Engine) Endpoints() EndpointInfo {
	selection := e.resolver.Selection()
	return EndpointInfo{
		Environment: selection.Environment,
		Tier:        selection.Tier,
		Networked:   e.client.Networked(),
		Endpoints:   e.resolver.Endpoints().Set(selection.Environment),
	}
}

// ListIssues returns a snapshot of the cached issues.
func (e *Engine) ListIssues() ([]issue.Issue, error) {
	issues, err := e.cache.List()
	if err != nil {
		logger.Error("sync: failed to list cached issues: %v", err)
		return nil, err
	}
	logger.Debug("sync: listed %d cached issues", len(issues))
	return issues, nil
}

// CreateIssue stores a new issue in the local cache only.
func (e *Engine) CreateIssue(req issue.CreateRequest) (issue.Issue, error) {
	created, err := e.cache.Insert(req)
	if err != nil {
		logger.Error("sync: failed to create local issue: %v", err)
		return issue.Issue{}, err
	}
	logger.Info("sync: created local issue #%d %q", created.ID, created.Title)
	return created, nil
}

// UpdateIssueStatus sets the status of a cached issue.
func (e *Engine) UpdateIssueStatus(id int, status string) (issue.Issue, error) {
	updated, err := e.cache.UpdateStatus(id, status)
	if err != nil {
		logger.Warn("sync: failed to update status of issue #%d: %v", id, err)
		return issue.Issue{}, err
	}
	logger.Info("sync: issue #%d status set to %q", id, status)
	return updated, nil
}

// DeleteIssue removes a cached issue.
func (e *Engine) DeleteIssue(id int) (bool, error) {
	ok, err := e.cache.Delete(id)
	if err != nil {
		logger.Warn("sync: failed to delete issue #%d: %v", id, err)
		return false, err
	}
	logger.Info("sync: deleted issue #%d", id)
	return ok, nil
}

// FetchRemoteIssues lists remote issues as display records. With merge set
// each record is also upserted into the cache under its remote id.
func (e *Engine) FetchRemoteIssues(ctx context.Context, merge bool) ([]issue.Issue, error) {
	logger.Debug("sync: fetching remote issues from %s", e.resolver.Endpoint(config.NameIssuesAPI))

	issues, err := e.client.FetchIssues(ctx)
	if err != nil {
		logger.Warn("sync: remote fetch failed: %v", err)
		return nil, err
	}

	if merge {
		merged := 0
		for _, record := range issues {
			if err := e.cache.Upsert(record); err != nil {
				logger.Warn("sync: failed to cache remote issue #%d: %v", record.ID, err)
				// Continue with other issues
				continue
			}
			merged++
		}
		logger.Info("sync: merged %d of %d remote issues into cache", merged, len(issues))
	}

	return issues, nil
}

// SubmitIssue sends a new issue to the remote service.
func (e *Engine) SubmitIssue(ctx context.Context, req issue.CreateRequest, token string) (string, error) {
	body, err := e.client.CreateIssue(ctx, req, token)
	if err != nil {
		logger.Warn("sync: issue submission failed: %v", err)
		return "", err
	}
	logger.Info("sync: submitted issue %q (authenticated=%t)", req.Title, token != "")
	return body, nil
}

// VouchIssue vouches for a remote issue. A count returned by the remote
// is copied onto the cached issue with the same id, if there is one.
func (e *Engine) VouchIssue(ctx context.Context, id int, token string) (api.VouchResult, error) {
	result, err := e.client.Vouch(ctx, id, token)
	if err != nil {
		logger.Warn("sync: vouch for issue #%d failed: %v", id, err)
		return api.VouchResult{}, err
	}

	if result.VouchCount != nil {
		_, err := e.cache.UpdateVouchCount(id, *result.VouchCount)
		switch {
		case errors.Is(err, cache.ErrNotFound):
			logger.Debug("sync: issue #%d not cached, vouch count not recorded", id)
		case err != nil:
			logger.Warn("sync: failed to record vouch count for issue #%d: %v", id, err)
		}
	}

	logger.Info("sync: vouched for issue #%d: %s", id, result.Text)
	return result, nil
}

// SendOTP requests a one-time password.
func (e *Engine) SendOTP(ctx context.Context, req api.OTPRequest) (json.RawMessage, error) {
	body, err := e.client.SendOTP(ctx, req)
	if err != nil {
		logger.Warn("sync: send OTP failed: %v", err)
		return nil, err
	}
	logger.Debug("sync: OTP requested for %s", req.MobileNumber)
	return body, nil
}

// VerifyOTP checks a one-time password.
func (e *Engine) VerifyOTP(ctx context.Context, req api.OTPRequest) (json.RawMessage, error) {
	body, err := e.client.VerifyOTP(ctx, req)
	if err != nil {
		logger.Warn("sync: verify OTP failed: %v", err)
		return nil, err
	}
	logger.Debug("sync: OTP verification answered for %s", req.MobileNumber)
	return body, nil
}

// Profile returns the token holder's profile.
func (e *Engine) Profile(ctx context.Context, token string) (json.RawMessage, error) {
	body, err := e.client.Profile(ctx, token)
	if err != nil {
		logger.Warn("sync: profile lookup failed: %v", err)
		return nil, err
	}
	return body, nil
}

// TestConnection checks that the remote is reachable.
func (e *Engine) TestConnection(ctx context.Context) (string, error) {
	msg, err := e.client.TestConnection(ctx)
	if err != nil {
		logger.Warn("sync: connection test failed: %v", err)
		return "", err
	}
	return msg, nil
}

// TestSubmission submits the fixed sample issue.
func (e *Engine) TestSubmission(ctx context.Context) (string, error) {
	msg, err := e.client.TestSubmission(ctx)
	if err != nil {
		logger.Warn("sync: test submission failed: %v", err)
		return "", err
	}
	return msg, nil
}

// SelfTestResult holds the outcome of one self-test.
type SelfTestResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// SelfTest runs the connection and submission tests concurrently. A failed
// test does not cancel the other.
func (e *Engine) SelfTest(ctx context.Context) []SelfTestResult {
	tests := []struct {
		name string
		run  func(context.Context) (string, error)
	}{
		{"connection", e.TestConnection},
		{"submission", e.TestSubmission},
	}

	results := make([]SelfTestResult, len(tests))
	var g errgroup.Group
	for i, tt := range tests {
		g.Go(func() error {
			msg, err := tt.run(ctx)
			results[i] = SelfTestResult{Name: tt.name, OK: err == nil, Message: msg}
			if err != nil {
				results[i].Message = err.Error()
			}
			return nil
		})
	}
	g.Wait()

	for _, r := range results {
		logger.Info("sync: self-test %s ok=%t", r.Name, r.OK)
	}
	return results
}

// String renders the result for terminal output.
func (r SelfTestResult) String() string {
	status := "ok"
	if !r.OK {
		status = "FAILED"
	}
	return fmt.Sprintf("%-10s %-6s %s", r.Name, status, r.Message)
}
