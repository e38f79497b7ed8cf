package rdma

import (
	"fmt"
	"strings"
)

// MaxConditionTokens bounds the number of raw -c tokens, i.e. two key/value pairs.
const MaxConditionTokens = 4

// Filter is a condition key accepted by `rdma res show`.
type Filter struct {
	Name    string
	Numeric bool
}

// Accepts reports whether value is usable with f. Numeric filters take a
// number or a dash separated range of numbers; bounds are not ordered.
func (f Filter) Accepts(value string) bool {
	if !f.Numeric {
		return true
	}
	for _, piece := range strings.Split(value, "-") {
		if !isDigits(piece) {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	return fmt.Sprintf("filter: %s is_number: %t", f.Name, f.Numeric)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidationError is returned when user input is rejected before any
// external command runs.
type ValidationError struct {
	Msg    string
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ValidateConditions checks a flat key/value condition list against the
// filters allowed for resource r. Either every pair is valid or an error is
// returned.
func ValidateConditions(r Resource, conditions []string) error {
	k, err := LookupKind(r)
	if err != nil {
		return err
	}

	if len(conditions) > MaxConditionTokens {
		return &ValidationError{
			Msg:    fmt.Sprintf("-c: no more than %d inputs", MaxConditionTokens),
			Detail: strings.Join(conditions, " "),
		}
	}

	if len(conditions)%2 != 0 {
		return &ValidationError{
			Msg:    "-c: condition error detected",
			Detail: fmt.Sprintf("filter %q has no value", conditions[len(conditions)-1]),
		}
	}

	for i := 0; i < len(conditions); i += 2 {
		name, value := conditions[i], conditions[i+1]
		f, ok := k.Filter(name)
		if !ok {
			return &ValidationError{
				Msg:    "-c: condition error detected",
				Detail: fmt.Sprintf("%s does not support filter %q, expected one of %s", r, name, strings.Join(k.FilterNames(), ", ")),
			}
		}
		if !f.Accepts(value) {
			return &ValidationError{
				Msg:    "-c: condition error detected",
				Detail: fmt.Sprintf("filter %q expects a number or a range, got %q", name, value),
			}
		}
	}

	return nil
}
