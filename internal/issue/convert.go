package issue

import "time"

// DisplayDateLayout renders dates as abbreviated month and day ("Jul 14").
const DisplayDateLayout = "Jan 02"

// timestampLayouts are tried in order. The zone-less layout covers Python's
// datetime.isoformat() output, which the remote emits for naive datetimes.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp. Zone-less values are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DisplayDate formats createdAt for display, substituting now when the
// timestamp is absent or unparseable. The result is never empty.
func DisplayDate(createdAt string, now time.Time) string {
	if t, ok := ParseTimestamp(createdAt); ok {
		return t.Format(DisplayDateLayout)
	}
	return now.Local().Format(DisplayDateLayout)
}

// FromRemote converts a remote issue to its local form. It never fails.
func FromRemote(remote Remote) Issue {
	return FromRemoteAt(remote, time.Now())
}

// FromRemoteAt is FromRemote with an explicit current time for the
// display-date fallback.
func FromRemoteAt(remote Remote, now time.Time) Issue {
	return Issue{
		ID:            remote.ID,
		Title:         remote.Title,
		Description:   remote.Description,
		Date:          DisplayDate(remote.CreatedAt, now),
		Latitude:      remote.Latitude,
		Longitude:     remote.Longitude,
		Status:        remote.Status,
		Category:      nonEmpty(remote.Category),
		Priority:      nonEmpty(remote.Priority),
		CreatedAt:     nonEmpty(remote.CreatedAt),
		ImageFilename: cloneString(remote.ImageFilename),
		AudioFilename: cloneString(remote.AudioFilename),
		VouchPriority: cloneInt(remote.VouchPriority),
		VouchCount:    cloneInt(remote.VouchCount),
	}
}

// FromRemoteList converts every remote issue.
func FromRemoteList(remotes []Remote, now time.Time) []Issue {
	out := make([]Issue, 0, len(remotes))
	for _, remote := range remotes {
		out = append(out, FromRemoteAt(remote, now))
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
