package issue

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Remote is an issue as the remote service sends it.
type Remote struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Category        string  `json:"category"`
	Priority        string  `json:"priority"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	ImageFilename   *string `json:"image_filename,omitempty"`
	AudioFilename   *string `json:"audio_filename,omitempty"`
	ImageBase64     *string `json:"image_base64,omitempty"`
	AudioBase64     *string `json:"audio_base64,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
	AudioURL        *string `json:"audio_url,omitempty"`
	DescriptionMode *string `json:"description_mode,omitempty"`
	VouchPriority   *int    `json:"vouch_priority,omitempty"`
	VouchCount      *int    `json:"vouch_count,omitempty"`
}

// UnmarshalJSON decodes field by field. A field with an unexpected type or
// value is treated as absent; only a body that is not a JSON object fails.
func (r *Remote) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("issue is not a JSON object: %w", err)
	}
	if fields == nil {
		return errors.New("issue is null")
	}

	var out Remote
	if id, ok := intField(fields["id"]); ok {
		out.ID = id
	}
	out.Title, _ = stringField(fields["title"])
	out.Description, _ = stringField(fields["description"])
	out.Latitude, _ = floatField(fields["latitude"])
	out.Longitude, _ = floatField(fields["longitude"])
	out.Category, _ = stringField(fields["category"])
	out.Priority, _ = stringField(fields["priority"])
	out.Status, _ = stringField(fields["status"])
	out.CreatedAt, _ = stringField(fields["created_at"])
	out.ImageFilename = optionalString(fields["image_filename"])
	out.AudioFilename = optionalString(fields["audio_filename"])
	out.ImageBase64 = optionalString(fields["image_base64"])
	out.AudioBase64 = optionalString(fields["audio_base64"])
	out.ImageURL = optionalString(fields["image_url"])
	out.AudioURL = optionalString(fields["audio_url"])
	out.DescriptionMode = optionalString(fields["description_mode"])
	out.VouchPriority = optionalInt(fields["vouch_priority"])
	out.VouchCount = optionalInt(fields["vouch_count"])

	*r = out
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// stringField accepts a JSON string, or a number rendered as its literal.
func stringField(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// floatField accepts a JSON number or a numeric string.
func floatField(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// intField accepts integral numbers (3 or 3.0) and numeric strings.
// Negative counters are not valid on the wire and are dropped.
func intField(raw json.RawMessage) (int, bool) {
	f, ok := floatField(raw)
	if !ok || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func optionalString(raw json.RawMessage) *string {
	s, ok := stringField(raw)
	if !ok {
		return nil
	}
	return &s
}

func optionalInt(raw json.RawMessage) *int {
	n, ok := intField(raw)
	if !ok {
		return nil
	}
	return &n
}

// ListResponse is the remote issue-list body.
type ListResponse struct {
	Issues []Remote `json:"issues"`
	Source string   `json:"source"`
	Count  int      `json:"count"`
	Limit  *int     `json:"limit,omitempty"`
	Offset *int     `json:"offset,omitempty"`
	Total  *int     `json:"total,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// DecodeListResponse parses a list body. The wrapper must be an object with
// an "issues" array; entries that are not objects are skipped and counted.
func DecodeListResponse(data []byte) (ListResponse, int, error) {
	var wire struct {
		Issues *[]json.RawMessage `json:"issues"`
		Source string             `json:"source"`
		Count  int                `json:"count"`
		Limit  *int               `json:"limit"`
		Offset *int               `json:"offset"`
		Total  *int               `json:"total"`
		Error  string             `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return ListResponse{}, 0, err
	}
	if wire.Issues == nil {
		return ListResponse{}, 0, errors.New(`missing "issues" array`)
	}

	resp := ListResponse{
		Issues: make([]Remote, 0, len(*wire.Issues)),
		Source: wire.Source,
		Count:  wire.Count,
		Limit:  wire.Limit,
		Offset: wire.Offset,
		Total:  wire.Total,
		Error:  wire.Error,
	}
	skipped := 0
	for _, raw := range *wire.Issues {
		var remote Remote
		if err := json.Unmarshal(raw, &remote); err != nil {
			skipped++
			continue
		}
		resp.Issues = append(resp.Issues, remote)
	}
	return resp, skipped, nil
}
