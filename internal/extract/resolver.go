package extract

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/rod-records/constants"
)

// PartyPolicy decides which textual role fills PartyA.
type PartyPolicy int

const (
	// FemaleFirst puts the bride/female-affidavit name in PartyA.
	FemaleFirst PartyPolicy = iota
	// MaleFirst puts the groom/male-affidavit name in PartyA.
	MaleFirst
)

func (p PartyPolicy) String() string {
	if p == MaleFirst {
		return "male-first"
	}
	return "female-first"
}

// ParsePartyPolicy parses "female-first" or "male-first"; empty means FemaleFirst.
func ParsePartyPolicy(s string) (PartyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "female-first":
		return FemaleFirst, nil
	case "male-first":
		return MaleFirst, nil
	default:
		return FemaleFirst, fmt.Errorf("unknown party policy %q", s)
	}
}

// Options configures a Resolver. Zero values select the defaults.
type Options struct {
	Library *Library
	// DefaultConfidence is used for every candidate when no word data exists.
	DefaultConfidence float64
	Policy            PartyPolicy
}

// Resolver selects the best candidate per field. It holds no mutable state
// and may be shared across goroutines.
type Resolver struct {
	lib         *Library
	defaultConf float64
	policy      PartyPolicy
}

// NewResolver builds a Resolver from opts.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		lib:         opts.Library,
		defaultConf: opts.DefaultConfidence,
		policy:      opts.Policy,
	}
	if r.lib == nil {
		r.lib = DefaultLibrary
	}
	if r.defaultConf <= 0 {
		r.defaultConf = constants.DefaultConfidence
	}
	return r
}

// Candidate is one formatted, scored strategy outcome.
type Candidate struct {
	StrategyID string
	Field      Field
}

// Evaluate runs one strategy against text and keeps the first capture its
// formatter accepts. ok is false when no capture survives.
func (r *Resolver) Evaluate(s Strategy, text string, idx *ConfidenceIndex) (Candidate, bool) {
	for _, c := range s.Match(text) {
		if v, ok := s.Format(c); ok && v != "" {
			return Candidate{StrategyID: s.ID, Field: newField(v, idx.Score(c.Raw, r.defaultConf))}, true
		}
	}
	return Candidate{}, false
}

// best keeps the highest score; the earlier strategy wins ties.
func (r *Resolver) best(strategies []Strategy, text string, idx *ConfidenceIndex) (Candidate, bool) {
	var (
		winner Candidate
		found  bool
	)
	for _, s := range strategies {
		cand, ok := r.Evaluate(s, text, idx)
		if !ok {
			continue
		}
		if !found || cand.Field.Confidence > winner.Field.Confidence {
			winner, found = cand, true
		}
	}
	return winner, found
}

// Resolve extracts all four fields from normalized text. idx may be nil.
// Identical inputs always produce identical output.
func (r *Resolver) Resolve(text string, idx *ConfidenceIndex) FieldSet {
	var fs FieldSet
	if strings.TrimSpace(text) == "" {
		return fs
	}
	if c, ok := r.best(r.lib.For(KindIdentifier, RoleNone), text, idx); ok {
		fs.Identifier = c.Field
	}
	if c, ok := r.best(r.lib.For(KindDate, RoleNone), text, idx); ok {
		fs.Date = c.Field
	}
	fs.PartyA, fs.PartyB = r.resolveParties(text, idx)
	return fs
}

func (r *Resolver) resolveParties(text string, idx *ConfidenceIndex) (Field, Field) {
	preferred, other := RoleFemale, RoleMale
	if r.policy == MaleFirst {
		preferred, other = RoleMale, RoleFemale
	}

	var a, b Field
	if c, ok := r.best(r.lib.For(KindName, preferred), text, idx); ok {
		a = c.Field
	}
	if c, ok := r.best(r.lib.For(KindName, other), text, idx); ok && !sameName(c.Field.Value, a.Value) {
		b = c.Field
	}
	if !a.Empty() && !b.Empty() {
		return a, b
	}

	// Fill the missing slots from unqualified clauses in document order.
	for _, s := range r.lib.For(KindName, RoleGeneric) {
		cand, ok := r.Evaluate(s, text, idx)
		if !ok {
			continue
		}
		switch {
		case a.Empty() && !sameName(cand.Field.Value, b.Value):
			a = cand.Field
		case b.Empty() && !sameName(cand.Field.Value, a.Value):
			b = cand.Field
		}
	}
	return a, b
}

func sameName(x, y string) bool {
	return x != "" && y != "" && strings.EqualFold(x, y)
}
