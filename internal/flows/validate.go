package flows

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/susu3304/bizbot/internal/db"
	"github.com/susu3304/bizbot/internal/wizard"
)

var digitsOnly = regexp.MustCompile(`^[0-9]+$`)

// ValidateTitle accepts any non-blank text up to the column width.
func ValidateTitle(raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, wizard.Rejection("The title cannot be empty. Enter the title again:")
	}
	if utf8.RuneCountInString(v) > db.MaxTitleLength {
		return nil, wizard.Rejection("The title is too long (255 characters max). Enter a shorter title:")
	}
	return v, nil
}

// ValidateTime keeps the time as free text, at most 50 characters.
func ValidateTime(raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, wizard.Rejection("The time cannot be empty. Enter a time, for example 18:00:")
	}
	if utf8.RuneCountInString(v) > db.MaxTimeLength {
		return nil, wizard.Rejection("That time is too long. Enter it again, for example 18:00:")
	}
	return v, nil
}

// ValidateAmount accepts a whole non-negative number of currency units.
func ValidateAmount(raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if !digitsOnly.MatchString(v) {
		return nil, wizard.Rejection("The amount must be a whole number without spaces or symbols, for example 85000. Enter the amount again:")
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, wizard.Rejection("That amount is too large. Enter the amount again:")
	}
	return n, nil
}

// ValidateProblem accepts any non-blank question for the advisor.
func ValidateProblem(raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, wizard.Rejection("Describe the problem in a few words, for example: How do I increase sales in summer?")
	}
	return v, nil
}
