package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinTitleLength   = 3
	MaxTitleLength   = 300
	MaxPostLength    = 40000
	MaxCommentLength = 10000
)

// NormalizeTitle trims the title and checks its length in runes.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := utf8.RuneCountInString(title)
	if n < MinTitleLength || n > MaxTitleLength {
		return "", fmt.Errorf("title must be between %d and %d characters", MinTitleLength, MaxTitleLength)
	}
	return title, nil
}

// ValidatePostContent allows an empty body; link-only posts are common.
func ValidatePostContent(content string) error {
	if utf8.RuneCountInString(content) > MaxPostLength {
		return fmt.Errorf("content must be at most %d characters", MaxPostLength)
	}
	return nil
}

// NormalizeComment trims the comment and rejects empty or oversized bodies.
func NormalizeComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("content is required")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", fmt.Errorf("content must be at most %d characters", MaxCommentLength)
	}
	return content, nil
}
