package services

import (
	"strings"
	"unicode/utf8"
)

// MaxStoredError bounds error text persisted on job and task rows.
const MaxStoredError = 1000

// truncate drops invalid UTF-8 from s and cuts it to at most n bytes without
// splitting a sequence. Postgres rejects invalid UTF-8 in text columns.
func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "")
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return truncate(err.Error(), MaxStoredError)
}
