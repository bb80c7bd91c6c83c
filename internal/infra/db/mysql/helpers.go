package mysql

import "strings"

// orDash returns "-" when the input is empty/whitespace
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// nullIfEmpty keeps optional text columns NULL instead of "".
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
