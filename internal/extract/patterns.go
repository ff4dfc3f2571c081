package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind groups strategies by the value they recover.
type Kind string

const (
	KindIdentifier Kind = "identifier"
	KindName       Kind = "name"
	KindDate       Kind = "date"
)

// Role is the textual role a name strategy looks for.
type Role string

const (
	RoleNone    Role = ""
	RoleFemale  Role = "female"
	RoleMale    Role = "male"
	RoleGeneric Role = "generic"
)

// Capture is what a matcher found: Raw is scored, Groups feed the formatter.
type Capture struct {
	Raw    string
	Groups []string
}

// Matcher lists candidates in normalized text, in document order.
type Matcher func(text string) []Capture

// Formatter turns a capture into the stored value; false rejects the candidate.
type Formatter func(Capture) (string, bool)

// Strategy is one way of recovering a value.
type Strategy struct {
	Kind   Kind
	Role   Role
	ID     string
	Match  Matcher
	Format Formatter
}

// Library is an ordered strategy table. Order is iteration order only;
// the resolver keeps the best-scoring candidate, ties to the earlier entry.
type Library struct {
	strategies []Strategy
}

// NewLibrary builds a library from strategies, preserving their order.
func NewLibrary(strategies ...Strategy) *Library {
	return &Library{strategies: append([]Strategy(nil), strategies...)}
}

// Strategies returns a copy of the table.
func (l *Library) Strategies() []Strategy {
	return append([]Strategy(nil), l.strategies...)
}

// For returns the strategies of kind and role, in table order.
func (l *Library) For(kind Kind, role Role) []Strategy {
	var out []Strategy
	for _, s := range l.strategies {
		if s.Kind == kind && s.Role == role {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the strategy with the given id.
func (l *Library) Lookup(id string) (Strategy, bool) {
	for _, s := range l.strategies {
		if s.ID == id {
			return s, true
		}
	}
	return Strategy{}, false
}

const (
	nameWindowLines = 8
	nameWindowChars = 200
)

var (
	reApplicationNo = regexp.MustCompile(`(?i)\bapplication\s*(?:number|num\.?|no\.?|#)\s*[:#]?\s*([a-z0-9][a-z0-9\-]*)`)
	reLicenseNo     = regexp.MustCompile(`(?i)\blicen[sc]e\s*(?:number|num\.?|no\.?|#)\s*[:#]?\s*([a-z0-9][a-z0-9\-]*)`)
	reBareNo        = regexp.MustCompile(`(?i)\bno\.?\s*#?\s*(\d+)\b`)

	// "I, John Smith, of ..." / "I Jane Doe desiring ..." / "I, John Smith do ..."
	reIClause = regexp.MustCompile(`\bI[, ]+([A-Z][A-Za-z.'\-]*(?: [A-Za-z.'\-]+)*?)(?:,|\s+(?i:of|desiring|do)\b)`)

	reFemaleAffidavit = regexp.MustCompile(`(?i)\baffidavit\s+of\s+female\b`)
	reMaleAffidavit   = regexp.MustCompile(`(?i)\baffidavit\s+of\s+male\b`)
	reFemaleKeyword   = regexp.MustCompile(`(?i)\bbride\b|\bwife\b|\bmiss\b`)
	reMaleKeyword     = regexp.MustCompile(`(?i)\bgroom\b|\bhusband\b`)

	// reAnyHeading ends a name window: a clause after it belongs to that heading.
	reAnyHeading = regexp.MustCompile(`(?i)\baffidavit\s+of\s+(?:fe)?male\b|\bbride\b|\bwife\b|\bmiss\b|\bgroom\b|\bhusband\b`)

	reMissTitle = regexp.MustCompile(`\b(?i:miss)\s+([A-Z][A-Za-z.'\-]*(?: [A-Za-z.'\-]+)*?)(?:,|\s+(?i:of|do)\b)`)
	reMrTitle   = regexp.MustCompile(`\b(?i:mr)\.?\s+([A-Z][A-Za-z.'\-]*(?: [A-Za-z.'\-]+)*?)(?:,|\s+(?i:of|do)\b)`)
)

// DefaultLibrary is the strategy table for affidavit-style marriage licenses.
var DefaultLibrary = NewLibrary(
	Strategy{Kind: KindIdentifier, ID: "application-no", Match: eachGroup(reApplicationNo), Format: formatIdentifier},
	Strategy{Kind: KindIdentifier, ID: "license-no", Match: eachGroup(reLicenseNo), Format: formatIdentifier},
	Strategy{Kind: KindIdentifier, ID: "bare-no", Match: eachGroup(reBareNo), Format: formatIdentifier},

	Strategy{Kind: KindName, Role: RoleFemale, ID: "female-affidavit", Match: windowed(reFemaleAffidavit), Format: formatName},
	Strategy{Kind: KindName, Role: RoleFemale, ID: "female-keyword", Match: windowed(reFemaleKeyword), Format: formatName},
	Strategy{Kind: KindName, Role: RoleFemale, ID: "miss-title", Match: eachGroup(reMissTitle), Format: formatName},
	Strategy{Kind: KindName, Role: RoleMale, ID: "male-affidavit", Match: windowed(reMaleAffidavit), Format: formatName},
	Strategy{Kind: KindName, Role: RoleMale, ID: "male-keyword", Match: windowed(reMaleKeyword), Format: formatName},
	Strategy{Kind: KindName, Role: RoleMale, ID: "mr-title", Match: eachGroup(reMrTitle), Format: formatName},
	Strategy{Kind: KindName, Role: RoleGeneric, ID: "first-i-clause", Match: nthGroup(reIClause, 0), Format: formatName},
	Strategy{Kind: KindName, Role: RoleGeneric, ID: "second-i-clause", Match: nthGroup(reIClause, 1), Format: formatName},

	Strategy{Kind: KindDate, ID: "day-of-month", Match: eachMatch(reDayOfMonth), Format: formatDayOfMonth},
	Strategy{Kind: KindDate, ID: "iso", Match: eachMatch(reISODate), Format: formatISODate},
	Strategy{Kind: KindDate, ID: "us-numeric", Match: eachMatch(reUSDate), Format: formatNumericDate},
	Strategy{Kind: KindDate, ID: "month-day-year", Match: eachMatch(reMonthDayYear), Format: formatMonthDayYear},
)

// eachGroup yields group 1 of every match.
func eachGroup(re *regexp.Regexp) Matcher {
	return func(text string) []Capture {
		var out []Capture
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, Capture{Raw: m[1], Groups: m})
		}
		return out
	}
}

// nthGroup yields group 1 of the n-th (0-based) match only.
func nthGroup(re *regexp.Regexp, n int) Matcher {
	return func(text string) []Capture {
		all := re.FindAllStringSubmatch(text, n+1)
		if len(all) <= n {
			return nil
		}
		m := all[n]
		return []Capture{{Raw: m[1], Groups: m}}
	}
}

func eachMatch(re *regexp.Regexp) Matcher {
	return func(text string) []Capture {
		var out []Capture
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out = append(out, Capture{Raw: m[0], Groups: m})
		}
		return out
	}
}

// windowed yields the first I-clause in the bounded window after each
// heading occurrence, in document order.
func windowed(heading *regexp.Regexp) Matcher {
	return func(text string) []Capture {
		var out []Capture
		for _, loc := range heading.FindAllStringIndex(text, -1) {
			if m := reIClause.FindStringSubmatch(window(text[loc[1]:])); m != nil {
				out = append(out, Capture{Raw: m[1], Groups: m})
			}
		}
		return out
	}
}

// window trims s at the next role heading, then to nameWindowLines lines
// (the heading's remainder counts as the first) and nameWindowChars bytes.
func window(s string) string {
	if loc := reAnyHeading.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	lines := 0
	for i, r := range s {
		if i >= nameWindowChars {
			return s[:i]
		}
		if r == '\n' {
			lines++
			if lines > nameWindowLines {
				return s[:i]
			}
		}
	}
	return s
}

func formatIdentifier(c Capture) (string, bool) {
	v := strings.ToUpper(strings.Trim(c.Raw, "-"))
	if !strings.ContainsFunc(v, unicode.IsDigit) {
		return "", false
	}
	return v, true
}

func formatName(c Capture) (string, bool) {
	v := strings.Join(strings.Fields(c.Raw), " ")
	v = strings.TrimRight(v, ".-' ")
	if len(v) <= 2 {
		return "", false
	}
	return v, true
}
