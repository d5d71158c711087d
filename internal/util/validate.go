package util

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Input bounds for raw text submissions.
const (
	TextMinLength = 10
	TextMaxLength = 50000
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters long", ErrInvalidInput)
	}
	return nil
}

// ValidateText checks trimmed length against [min, max].
func ValidateText(text string, min, max int) error {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < min {
		return fmt.Errorf("%w: text must be at least %d characters", ErrInvalidInput, min)
	}
	if len(text) > max {
		return fmt.Errorf("%w: text must not exceed %d characters", ErrInvalidInput, max)
	}
	return nil
}

// ValidateURL accepts well-formed absolute http(s) URLs only.
func ValidateURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
