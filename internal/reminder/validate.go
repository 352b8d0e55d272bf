package reminder

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// DateLayout is the canonical key format. Fixed-width ISO dates sort
// lexicographically in chronological order.
const DateLayout = "2006-01-02"

// TimeLayout accepts a one or two digit hour and a two digit minute.
const TimeLayout = "15:04"

// Validation error kinds.
const (
	KindEmptyField        = "empty_field"
	KindInvalidDate       = "invalid_date"
	KindInvalidTime       = "invalid_time"
	KindInvalidRecurrence = "invalid_recurrence"
)

// IsValidDate reports whether s is a real calendar date in YYYY-MM-DD form.
// The empty string is not a valid date.
func IsValidDate(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// IsValidTime reports whether s is empty or a 24-hour HH:MM time.
func IsValidTime(s string) bool {
	if s == "" {
		return true
	}
	_, err := time.Parse(TimeLayout, s)
	return err == nil
}

// ParseRecurrence maps a tag to its canonical form. Matching ignores case;
// the empty string means None.
func ParseRecurrence(s string) (models.Recurrence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.RecurrenceNone, nil
	}
	for _, r := range models.Recurrences {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown recurrence %q", s)
}

// Ozzo rules for the two string formats. Like every ozzo string rule they
// pass on empty input, so pair DateRule with validation.Required.
var (
	DateRule = validation.NewStringRuleWithError(IsValidDate,
		validation.NewError("validation_invalid_date", "must be a date in YYYY-MM-DD format"))
	TimeRule = validation.NewStringRuleWithError(IsValidTime,
		validation.NewError("validation_invalid_time", "must be a time in HH:MM format"))
)

// ValidationError describes why a reminder was rejected.
type ValidationError struct {
	Kind    string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match any validation failure with apperr.ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return apperr.ErrInvalidInput
}

// Input is a reminder as entered by the user, before normalisation.
type Input struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Recurrence string `json:"recurrence"`
	Text       string `json:"text"`
}

// Validate checks in and returns the normalised record. Checks run in a fixed
// order: required fields, date format, time format, recurrence tag.
func Validate(in Input) (models.Record, error) {
	text := strings.TrimSpace(in.Text)
	if err := validation.Validate(in.Date, validation.Required); err != nil {
		return models.Record{}, &ValidationError{Kind: KindEmptyField, Field: "date", Message: "Please enter a valid date and reminder."}
	}
	if err := validation.Validate(text, validation.Required); err != nil {
		return models.Record{}, &ValidationError{Kind: KindEmptyField, Field: "text", Message: "Please enter a valid date and reminder."}
	}
	if err := validation.Validate(in.Date, DateRule); err != nil {
		return models.Record{}, &ValidationError{Kind: KindInvalidDate, Field: "date", Message: "Date must be in YYYY-MM-DD format."}
	}
	if err := validation.Validate(in.Time, TimeRule); err != nil {
		return models.Record{}, &ValidationError{Kind: KindInvalidTime, Field: "time", Message: "Time must be in HH:MM format (24-hour)."}
	}
	rec, err := ParseRecurrence(in.Recurrence)
	if err != nil {
		return models.Record{}, &ValidationError{Kind: KindInvalidRecurrence, Field: "recurrence", Message: "Recurrence must be one of None, Daily, Weekly, Monthly."}
	}
	return models.Record{Text: text, Time: in.Time, Recurrence: rec}, nil
}
