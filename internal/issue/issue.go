// Package issue defines the local and remote representations of an issue
// and converts between them.
package issue

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// StatusOpen is the status given to newly created local issues. The remote
// service defines further values.
const StatusOpen = "Open"

// Description modes.
const (
	ModeText  = "text"
	ModeAudio = "audio"
)

// Issue is the local representation handed to the UI.
type Issue struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Date          string  `json:"date"` // display date, e.g. "Jul 14"
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Status        string  `json:"status"`
	Category      *string `json:"category"`
	Priority      *string `json:"priority"`
	CreatedAt     *string `json:"created_at"`
	ImageFilename *string `json:"image_filename"`
	AudioFilename *string `json:"audio_filename"`
	VouchPriority *int    `json:"vouch_priority"`
	VouchCount    *int    `json:"vouch_count"`
}

// CreateRequest is the payload the UI supplies for a new issue. Image and
// audio are standard base64.
type CreateRequest struct {
	Title           string  `json:"title" validate:"notblank"`
	Description     string  `json:"description" validate:"notblank"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Category        string  `json:"category"`
	Priority        string  `json:"priority"`
	ImageData       *string `json:"image_data,omitempty"`
	AudioData       *string `json:"audio_data,omitempty"`
	DescriptionMode string  `json:"description_mode"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("issue: register notblank: %v", err))
	}
	return v
}

// Validate checks that title and description are not blank. The error
// message names the first offending field, e.g. "Title cannot be empty".
func (r CreateRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		return fmt.Errorf("%s cannot be empty", fieldErrors[0].Field())
	}
	return err
}

// NewLocal builds the cached record for a locally created issue.
func NewLocal(id int, req CreateRequest, now time.Time) Issue {
	zero := 0
	vouchCount := 0
	createdAt := now.Format(time.RFC3339)
	return Issue{
		ID:            id,
		Title:         req.Title,
		Description:   req.Description,
		Date:          now.Format(DisplayDateLayout),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Status:        StatusOpen,
		Category:      stringPtr(req.Category),
		Priority:      stringPtr(req.Priority),
		CreatedAt:     &createdAt,
		VouchPriority: &zero,
		VouchCount:    &vouchCount,
	}
}

func stringPtr(s string) *string {
	return &s
}

// Clone returns a deep copy, so callers outside the cache cannot mutate
// cached records through shared pointers.
func (i Issue) Clone() Issue {
	out := i
	out.Category = cloneString(i.Category)
	out.Priority = cloneString(i.Priority)
	out.CreatedAt = cloneString(i.CreatedAt)
	out.ImageFilename = cloneString(i.ImageFilename)
	out.AudioFilename = cloneString(i.AudioFilename)
	out.VouchPriority = cloneInt(i.VouchPriority)
	out.VouchCount = cloneInt(i.VouchCount)
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
