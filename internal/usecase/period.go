package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

var periodPattern = regexp.MustCompile(`(?i)(\d+)\s*(days?|weeks?)`)

// ExtractPeriod returns the forecast horizon in days named by the first
// "<n> day(s)" or "<n> week(s)" phrase in query, or def when there is none.
// Weeks count as 7 days. A number too large to represent also yields def.
func ExtractPeriod(query string, def int) int {
	m := periodPattern.FindStringSubmatch(query)
	if m == nil {
		return def
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return def
	}
	if strings.HasPrefix(strings.ToLower(m[2]), "week") {
		if n > maxInt/7 {
			return def
		}
		n *= 7
	}
	return n
}

const maxInt = int(^uint(0) >> 1)
