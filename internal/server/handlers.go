package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Quanta-Naut/CivicBridge-App/internal/api"
	"github.com/Quanta-Naut/CivicBridge-App/internal/cache"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
)

// statusFor maps an operation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cache.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case api.IsValidation(err), api.IsEncoding(err):
		return http.StatusBadRequest
	case api.KindOf(err) != "":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func issueID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid issue id")
		return 0, false
	}
	return id, true
}

// bearerToken returns the token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// tokenFrom prefers an explicit body token over the Authorization header.
func tokenFrom(c *gin.Context, bodyToken *string) string {
	if bodyToken != nil && strings.TrimSpace(*bodyToken) != "" {
		return strings.TrimSpace(*bodyToken)
	}
	return bearerToken(c)
}

func rawJSON(c *gin.Context, body json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Endpoints())
}

func (s *Server) handleListIssues(c *gin.Context) {
	issues, err := s.engine.ListIssues()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (s *Server) handleCreateIssue(c *gin.Context) {
	var req issue.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid issue payload: "+err.Error())
		return
	}

	created, err := s.engine.CreateIssue(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, ok := issueID(c)
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "status is required")
		return
	}

	updated, err := s.engine.UpdateIssueStatus(id, body.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteIssue(c *gin.Context) {
	id, ok := issueID(c)
	if !ok {
		return
	}

	deleted, err := s.engine.DeleteIssue(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (s *Server) handleFetchRemote(c *gin.Context) {
	merge, _ := strconv.ParseBool(c.DefaultQuery("merge", "false"))

	issues, err := s.engine.FetchRemoteIssues(c.Request.Context(), merge)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (s *Server) handleSubmitIssue(c *gin.Context) {
	var body struct {
		Request   issue.CreateRequest `json:"request"`
		AuthToken *string             `json:"auth_token"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid submission payload: "+err.Error())
		return
	}

	result, err := s.engine.SubmitIssue(c.Request.Context(), body.Request, tokenFrom(c, body.AuthToken))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": result})
}

func (s *Server) handleVouch(c *gin.Context) {
	id, ok := issueID(c)
	if !ok {
		return
	}

	var body struct {
		AuthToken *string `json:"auth_token"`
	}
	// An empty body is fine when the token comes from the header.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid vouch payload: "+err.Error())
			return
		}
	}

	result, err := s.engine.VouchIssue(c.Request.Context(), id, tokenFrom(c, body.AuthToken))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) bindOTP(c *gin.Context) (api.OTPRequest, bool) {
	var req api.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid OTP payload: "+err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) handleSendOTP(c *gin.Context) {
	req, ok := s.bindOTP(c)
	if !ok {
		return
	}
	body, err := s.engine.SendOTP(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	rawJSON(c, body)
}

func (s *Server) handleVerifyOTP(c *gin.Context) {
	req, ok := s.bindOTP(c)
	if !ok {
		return
	}
	body, err := s.engine.VerifyOTP(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}
	rawJSON(c, body)
}

func (s *Server) handleProfile(c *gin.Context) {
	body, err := s.engine.Profile(c.Request.Context(), bearerToken(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	rawJSON(c, body)
}

func (s *Server) handleTestConnection(c *gin.Context) {
	msg, err := s.engine.TestConnection(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}

func (s *Server) handleTestSubmission(c *gin.Context) {
	msg, err := s.engine.TestSubmission(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
