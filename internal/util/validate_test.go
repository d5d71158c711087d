package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+c@sub.domain.org", "1@2.io"}
	for _, email := range valid {
		assert.True(t, ValidateEmail(email), email)
	}

	invalid := []string{"", "plain", "no@tld", "two@@example.com", "spa ce@example.com", "@example.com"}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("123456"))
	assert.ErrorIs(t, ValidatePassword("12345"), ErrInvalidInput)
	assert.ErrorIs(t, ValidatePassword(""), ErrInvalidInput)
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("exactly 10", TextMinLength, TextMaxLength))
	assert.ErrorIs(t, ValidateText("too short", TextMinLength, TextMaxLength), ErrInvalidInput)

	// surrounding whitespace does not count toward the minimum
	padded := "   hi    \n\t"
	assert.ErrorIs(t, ValidateText(padded, TextMinLength, TextMaxLength), ErrInvalidInput)

	long := strings.Repeat("a", TextMaxLength+1)
	assert.ErrorIs(t, ValidateText(long, TextMinLength, TextMaxLength), ErrInvalidInput)
	assert.NoError(t, ValidateText(strings.Repeat("a", TextMaxLength), TextMinLength, TextMaxLength))
}

func TestValidateURL(t *testing.T) {
	assert.True(t, ValidateURL("https://example.com/article"))
	assert.True(t, ValidateURL("http://localhost:8080/page?q=1"))

	assert.False(t, ValidateURL(""))
	assert.False(t, ValidateURL("example.com/article"))
	assert.False(t, ValidateURL("ftp://example.com/file"))
	assert.False(t, ValidateURL("https://"))
	assert.False(t, ValidateURL("not a url"))
}
