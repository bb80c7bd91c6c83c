package middleware

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Input validation and sanitization utilities

const maxFileNameLen = 255

// ValidateAnalysisID checks that id is a canonical UUID.
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidateMedia accepts "" (any) or one of the supported media kinds.
func ValidateMedia(media string) error {
	switch media {
	case "", "text", "image", "audio":
		return nil
	}
	return fmt.Errorf("invalid media: %s (allowed: text, image, audio)", media)
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// SanitizeFileName keeps the base name of a client supplied file name, single line,
// capped in length. It only ends up in the prompt and the history record.
func SanitizeFileName(name string) string {
	name = SanitizeString(strings.NewReplacer("\n", " ", "\t", " ").Replace(name))
	if name == "" {
		return ""
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if r := []rune(name); len(r) > maxFileNameLen {
		name = string(r[:maxFileNameLen])
	}
	return name
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// MaxPage keeps (page-1)*limit far from overflowing.
const MaxPage = 100000

// ValidatePage parses a 1-based page number; junk means the first page and
// anything past MaxPage is clamped.
func ValidatePage(raw string) int {
	page, err := strconv.Atoi(raw)
	switch {
	case errors.Is(err, strconv.ErrRange) && page > 0, page > MaxPage:
		return MaxPage
	case err != nil, page < 1:
		return 1
	}
	return page
}
