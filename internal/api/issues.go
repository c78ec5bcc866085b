package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
)

// Multipart field names and attachment metadata expected by the remote.
const (
	imageFilename    = "issue_image.jpg"
	imageContentType = "image/jpeg"
	audioFilename    = "issue_audio.webm"
	audioContentType = "audio/webm"
)

// FetchIssues lists issues from the remote and converts them to display
// records. List entries that are not objects are skipped.
func (c *Client) FetchIssues(ctx context.Context) ([]issue.Issue, error) {
	const op = "fetch issues"
	url := c.resolver.Endpoint(config.NameIssuesAPI)

	resp, err := c.doRequest(ctx, op, http.MethodGet, url, nil, "", "")
	if err != nil {
		return nil, err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return nil, err
	}
	if !isSuccess(resp.StatusCode) {
		return nil, statusError(op, resp.StatusCode, body)
	}

	list, skipped, err := issue.DecodeListResponse(body)
	if err != nil {
		return nil, parseError(op, body, err)
	}
	if skipped > 0 {
		c.log.Warn("api: skipped %d malformed entries in issue list", skipped)
	}
	if list.Error != "" {
		c.log.Warn("api: remote reported %q while listing issues (source %s)", list.Error, list.Source)
	}

	c.log.Info("api: fetched %d issues (source %s)", len(list.Issues), list.Source)
	return issue.FromRemoteList(list.Issues, c.now()), nil
}

// CreateIssue submits a new issue as multipart form data and returns the
// remote's raw success body. An empty token submits anonymously.
//
// Blank titles and descriptions and malformed base64 are rejected before
// any request is made.
func (c *Client) CreateIssue(ctx context.Context, req issue.CreateRequest, token string) (string, error) {
	const op = "create issue"
	if err := req.Validate(); err != nil {
		return "", validationError(op, err.Error())
	}

	payload, contentType, err := encodeCreateRequest(op, req)
	if err != nil {
		return "", err
	}

	if token == "" {
		c.log.Debug("api: submitting issue %q anonymously", req.Title)
	}

	url := c.resolver.Endpoint(config.NameIssuesAPI)
	resp, err := c.doRequest(ctx, op, http.MethodPost, url, payload, contentType, token)
	if err != nil {
		return "", err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", statusError(op, resp.StatusCode, body)
	}

	c.log.Info("api: submitted issue %q", req.Title)
	return string(body), nil
}

// encodeCreateRequest builds the multipart body. Attachments are decoded
// first so a bad payload fails without a partial body.
func encodeCreateRequest(op string, req issue.CreateRequest) (*bytes.Buffer, string, error) {
	image, err := decodeAttachment(op, "image", req.ImageData)
	if err != nil {
		return nil, "", err
	}
	audio, err := decodeAttachment(op, "audio", req.AudioData)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
		{"latitude", formatCoordinate(req.Latitude)},
		{"longitude", formatCoordinate(req.Longitude)},
		{"category", req.Category},
		{"priority", req.Priority},
		{"description_mode", req.DescriptionMode},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", encodingError(op, "form", err)
		}
	}

	if image != nil {
		if err := writeFilePart(w, "image", imageFilename, imageContentType, image); err != nil {
			return nil, "", encodingError(op, "image", err)
		}
	}
	if audio != nil {
		if err := writeFilePart(w, "audio", audioFilename, audioContentType, audio); err != nil {
			return nil, "", encodingError(op, "audio", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", encodingError(op, "form", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// decodeAttachment returns nil for an absent payload.
func decodeAttachment(op, what string, data *string) ([]byte, error) {
	if data == nil {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(*data)
	if err != nil {
		return nil, encodingError(op, what, err)
	}
	return decoded, nil
}

func writeFilePart(w *multipart.Writer, field, filename, contentType string, data []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// formatCoordinate renders the shortest decimal form, e.g. 77 or 28.6139.
func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// TestConnection calls the remote health endpoint, derived from the issues
// endpoint by replacing /api/issues with /api/test.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	const op = "test connection"
	url := testURL(c.resolver.Endpoint(config.NameIssuesAPI))

	resp, err := c.doRequest(ctx, op, http.MethodGet, url, nil, "", "")
	if err != nil {
		return "", err
	}
	body, err := readBody(op, resp)
	if err != nil {
		return "", err
	}
	if !isSuccess(resp.StatusCode) {
		return "", statusError(op, resp.StatusCode, body)
	}
	return "Server is reachable! Response: " + string(body), nil
}

// TestSubmission submits a fixed sample issue anonymously.
func (c *Client) TestSubmission(ctx context.Context) (string, error) {
	body, err := c.CreateIssue(ctx, SampleRequest(), "")
	if err != nil {
		return "", err
	}
	return "Test issue submitted successfully! Response: " + body, nil
}

// SampleRequest is the issue sent by TestSubmission.
func SampleRequest() issue.CreateRequest {
	return issue.CreateRequest{
		Title:           "Test Issue",
		Description:     "This is a test issue",
		Latitude:        28.6139,
		Longitude:       77.2090,
		Category:        "infrastructure",
		Priority:        "medium",
		DescriptionMode: issue.ModeText,
	}
}

func testURL(issuesAPI string) string {
	return strings.ReplaceAll(issuesAPI, "/api/issues", "/api/test")
}
