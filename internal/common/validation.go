package common

import (
	"fmt"
	"strings"
)

// FieldError is one failed rule on a configuration key.
type FieldError struct {
	Key     string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s=%v: %s", e.Key, e.Value, e.Message)
}

// Rule checks one value and returns a message when it fails.
type Rule func(value any) (msg string, ok bool)

// Validator collects FieldErrors across chained Field calls.
type Validator struct {
	errs []FieldError
}

func NewValidator() *Validator { return &Validator{} }

// Field applies rules to value, recording every failure under key.
func (v *Validator) Field(key string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg, ok := rule(value); !ok {
			v.errs = append(v.errs, FieldError{Key: key, Value: value, Message: msg})
		}
	}
	return v
}

// Errors returns the failures recorded so far.
func (v *Validator) Errors() []FieldError { return v.errs }

// Error joins all failures into one error wrapping ErrInvalidInput, or nil.
func (v *Validator) Error() error {
	if len(v.errs) == 0 {
		return nil
	}
	parts := make([]string, len(v.errs))
	for i, e := range v.errs {
		parts[i] = e.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(parts, "; "))
}

// Required rejects empty or blank strings and nil.
func Required(value any) (string, bool) {
	switch s := value.(type) {
	case nil:
		return "is required", false
	case string:
		if strings.TrimSpace(s) == "" {
			return "is required", false
		}
	}
	return "", true
}

// Positive requires an int greater than zero.
func Positive(value any) (string, bool) {
	if n, ok := value.(int); ok && n > 0 {
		return "", true
	}
	return "must be a positive integer", false
}

// UnitInterval requires a confidence-like float64 in [0,1].
func UnitInterval(value any) (string, bool) {
	f, ok := value.(float64)
	if !ok {
		return "must be a number", false
	}
	if f < 0 || f > 1 {
		return "must be between 0 and 1", false
	}
	return "", true
}

// OneOf accepts only the listed strings.
func OneOf(allowed ...string) Rule {
	return func(value any) (string, bool) {
		s, _ := value.(string)
		for _, a := range allowed {
			if s == a {
				return "", true
			}
		}
		return "must be one of " + strings.Join(allowed, ", "), false
	}
}
