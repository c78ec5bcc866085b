package issue

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 9, 3, 12, 0, 0, 0, time.Local)

func TestDisplayDate(t *testing.T) {
	tests := []struct {
		name      string
		createdAt string
		want      string
	}{
		{"rfc3339 utc", "2025-07-14T10:00:00Z", "Jul 14"},
		{"rfc3339 offset", "2025-07-12T08:30:00+05:30", "Jul 12"},
		{"fractional seconds", "2025-01-05T23:59:59.123456Z", "Jan 05"},
		{"python isoformat without zone", "2025-07-14T10:00:00.654321", "Jul 14"},
		{"empty falls back to now", "", "Sep 03"},
		{"garbage falls back to now", "yesterday", "Sep 03"},
		{"date only falls back to now", "2025-07-14", "Sep 03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DisplayDate(tt.createdAt, fixedNow); got != tt.want {
				t.Errorf("DisplayDate(%q) = %q, want %q", tt.createdAt, got, tt.want)
			}
		})
	}
}

func TestFromRemoteAt_CopiesFields(t *testing.T) {
	filename := "street_light.jpg"
	vouches := 4
	remote := Remote{
		ID:            7,
		Title:         "Street Light",
		Description:   "Street light is not working",
		Latitude:      28.615,
		Longitude:     77.21,
		Category:      "electricity",
		Priority:      "high",
		Status:        "In Progress",
		CreatedAt:     "2025-07-12T08:30:00Z",
		ImageFilename: &filename,
		VouchPriority: &vouches,
		VouchCount:    &vouches,
	}

	got := FromRemoteAt(remote, fixedNow)

	if got.ID != 7 || got.Title != "Street Light" || got.Status != "In Progress" {
		t.Errorf("scalar fields not copied: %+v", got)
	}
	if got.Date != "Jul 12" {
		t.Errorf("Date = %q, want %q", got.Date, "Jul 12")
	}
	if got.Category == nil || *got.Category != "electricity" {
		t.Errorf("Category = %v, want electricity", got.Category)
	}
	if got.CreatedAt == nil || *got.CreatedAt != "2025-07-12T08:30:00Z" {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	if got.ImageFilename == nil || *got.ImageFilename != filename {
		t.Errorf("ImageFilename = %v", got.ImageFilename)
	}
	if got.AudioFilename != nil {
		t.Errorf("AudioFilename should stay absent, got %v", *got.AudioFilename)
	}
	if got.VouchCount == nil || *got.VouchCount != 4 {
		t.Errorf("VouchCount = %v, want 4", got.VouchCount)
	}

	// The local record must not alias the remote's pointers.
	*remote.VouchCount = 99
	if *got.VouchCount != 4 {
		t.Error("VouchCount aliases the remote record")
	}
}

// TestFromRemoteAt_Totality feeds degenerate records through the converter;
// every one must convert with a non-empty display date.
func TestFromRemoteAt_Totality(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"id": 1, "created_at": null}`,
		`{"id": 2, "created_at": "not a date", "category": null, "priority": 5}`,
		`{"id": "3", "latitude": "28.6", "longitude": "east", "vouch_count": "two"}`,
		`{"id": 4.5, "title": ["x"], "vouch_priority": -1, "status": false}`,
	}

	for _, body := range bodies {
		var remote Remote
		if err := json.Unmarshal([]byte(body), &remote); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", body, err)
		}
		got := FromRemoteAt(remote, fixedNow)
		if got.Date == "" {
			t.Errorf("empty display date for %s", body)
		}
	}
}

func TestRemoteUnmarshal_Lenient(t *testing.T) {
	body := `{
		"id": "12",
		"title": "Pothole",
		"description": "Deep pothole",
		"latitude": "28.6139",
		"longitude": 77.209,
		"category": "infrastructure",
		"priority": 3,
		"status": "Open",
		"created_at": "2025-07-14T10:00:00Z",
		"image_url": "https://cdn.example/p.jpg",
		"description_mode": "audio",
		"vouch_priority": 2.0,
		"vouch_count": {"nested": true},
		"unexpected": "ignored"
	}`

	var remote Remote
	if err := json.Unmarshal([]byte(body), &remote); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if remote.ID != 12 {
		t.Errorf("ID = %d, want 12", remote.ID)
	}
	if remote.Latitude != 28.6139 {
		t.Errorf("Latitude = %v, want 28.6139", remote.Latitude)
	}
	if remote.Priority != "3" {
		t.Errorf("Priority = %q, want %q", remote.Priority, "3")
	}
	if remote.ImageURL == nil || *remote.ImageURL != "https://cdn.example/p.jpg" {
		t.Errorf("ImageURL = %v", remote.ImageURL)
	}
	if remote.DescriptionMode == nil || *remote.DescriptionMode != ModeAudio {
		t.Errorf("DescriptionMode = %v", remote.DescriptionMode)
	}
	if remote.VouchPriority == nil || *remote.VouchPriority != 2 {
		t.Errorf("VouchPriority = %v, want 2", remote.VouchPriority)
	}
	if remote.VouchCount != nil {
		t.Errorf("VouchCount should degrade to absent, got %d", *remote.VouchCount)
	}
}

func TestRemoteUnmarshal_RejectsNonObjects(t *testing.T) {
	for _, body := range []string{`null`, `[]`, `"issue"`, `42`} {
		var remote Remote
		if err := json.Unmarshal([]byte(body), &remote); err == nil {
			t.Errorf("Unmarshal(%s) should fail", body)
		}
	}
}

func TestDecodeListResponse(t *testing.T) {
	body := `{
		"issues": [
			{"id": 1, "title": "Garbage", "created_at": "2025-07-14T10:00:00Z"},
			"not an issue",
			{"id": 2, "title": "Street Light"},
			null
		],
		"source": "database",
		"count": 2,
		"limit": 50,
		"total": 2
	}`

	resp, skipped, err := DecodeListResponse([]byte(body))
	if err != nil {
		t.Fatalf("DecodeListResponse failed: %v", err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if len(resp.Issues) != 2 || resp.Issues[1].Title != "Street Light" {
		t.Errorf("unexpected issues: %+v", resp.Issues)
	}
	if resp.Source != "database" || resp.Count != 2 {
		t.Errorf("wrapper fields: source=%q count=%d", resp.Source, resp.Count)
	}
	if resp.Limit == nil || *resp.Limit != 50 || resp.Offset != nil {
		t.Errorf("optional wrapper fields: limit=%v offset=%v", resp.Limit, resp.Offset)
	}
}

func TestDecodeListResponse_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"array instead of wrapper", `[{"id": 1}]`},
		{"missing issues", `{"source": "memory", "count": 0}`},
		{"issues not array", `{"issues": {"id": 1}, "source": "memory", "count": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeListResponse([]byte(tt.body)); err == nil {
				t.Errorf("expected error for %s", tt.body)
			}
		})
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr string
	}{
		{"valid", CreateRequest{Title: "Pothole", Description: "Deep"}, ""},
		{"empty title", CreateRequest{Title: "", Description: "Deep"}, "Title cannot be empty"},
		{"blank title", CreateRequest{Title: "   ", Description: "Deep"}, "Title cannot be empty"},
		{"empty description", CreateRequest{Title: "Pothole", Description: "\t"}, "Description cannot be empty"},
		{"both empty reports title", CreateRequest{}, "Title cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewLocal(t *testing.T) {
	now := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC)
	got := NewLocal(3, CreateRequest{Title: "Garbage", Description: "Pile", Category: "garbage", Priority: "medium"}, now)

	if got.ID != 3 || got.Status != StatusOpen || got.Date != "Jul 14" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.CreatedAt == nil || *got.CreatedAt != "2025-07-14T10:00:00Z" {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}
	if got.VouchCount == nil || *got.VouchCount != 0 || got.VouchPriority == nil || *got.VouchPriority != 0 {
		t.Errorf("vouch counters should start at 0: %v %v", got.VouchCount, got.VouchPriority)
	}
	if got.ImageFilename != nil || got.AudioFilename != nil {
		t.Error("filenames should be absent")
	}
}

func TestIssueJSONUsesNullForAbsentFields(t *testing.T) {
	data, err := json.Marshal(Issue{ID: 1, Title: "t", Date: "Jul 14", Status: StatusOpen})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, want := range []string{`"category":null`, `"vouch_count":null`, `"date":"Jul 14"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s missing %s", data, want)
		}
	}
}
