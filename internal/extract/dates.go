package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthAlt = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var (
	// "3rd day of June, 1952", "day of June 3rd, A.D. 1952"
	reDayOfMonth = regexp.MustCompile(`(?i)(?:\b(\d{1,2})(?:st|nd|rd|th)?\s+)?\bday\s+of\s+([a-z]+)\.?(?:\s+(\d{1,2})(?:st|nd|rd|th)?\b)?\s*,?\s*(?:a\.?\s*d\.?\s*)?(\d{2,4})\b`)
	reISODate    = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	reUSDate     = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{2,4})\b`)

	reMonthDayYear = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b\s*,?\s*(\d{4})\b`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "sept": 9, "oct": 10, "nov": 11, "dec": 12,
}

// MonthNumber maps an English month name or abbreviation to 1..12.
func MonthNumber(name string) (int, bool) {
	n, ok := monthNumbers[strings.ToLower(strings.TrimSuffix(name, "."))]
	return n, ok
}

// CanonicalDate renders y-m-d as YYYY-MM-DD. Two-digit years and impossible
// calendar dates are rejected rather than guessed.
func CanonicalDate(year, month, day string) (string, bool) {
	if len(year) != 4 {
		return "", false
	}
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d), true
}

// ParseDate canonicalizes a date found in free text, trying the date
// strategies of DefaultLibrary in order. Already-canonical input passes through.
func ParseDate(s string) (string, bool) {
	for _, st := range DefaultLibrary.For(KindDate, RoleNone) {
		for _, c := range st.Match(s) {
			if v, ok := st.Format(c); ok {
				return v, true
			}
		}
	}
	return "", false
}

func formatDayOfMonth(c Capture) (string, bool) {
	// groups: 1 day-before, 2 month, 3 day-after, 4 year
	m, ok := MonthNumber(c.Groups[2])
	if !ok {
		return "", false
	}
	day := c.Groups[1]
	if day == "" {
		day = c.Groups[3]
	}
	if day == "" {
		day = "1"
	}
	return CanonicalDate(c.Groups[4], strconv.Itoa(m), day)
}

func formatISODate(c Capture) (string, bool) {
	return CanonicalDate(c.Groups[1], c.Groups[2], c.Groups[3])
}

// formatNumericDate reads a triplet as MM/DD/YYYY and, when that is not a
// valid date, as DD/MM/YYYY.
func formatNumericDate(c Capture) (string, bool) {
	if v, ok := CanonicalDate(c.Groups[3], c.Groups[1], c.Groups[2]); ok {
		return v, true
	}
	return CanonicalDate(c.Groups[3], c.Groups[2], c.Groups[1])
}

func formatMonthDayYear(c Capture) (string, bool) {
	m, ok := MonthNumber(c.Groups[1])
	if !ok {
		return "", false
	}
	return CanonicalDate(c.Groups[3], strconv.Itoa(m), c.Groups[2])
}
