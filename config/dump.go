package config

import (
	"strings"

	"github.com/pkg/errors"
)

// DumpCommand is the configuration for a context dump
type DumpCommand struct {
	Resource   string
	Device     string
	Conditions []string
	OutputDir  string
	Jobs       int
	Compact    bool
}

// Filter is the condition list of a dump grouped into key/value pairs
type Filter struct {
	Ands []FilterElement
}

// FilterElement is the key value to filter for
type FilterElement struct {
	Key   string
	Value string
}

// String renders the element the way it is passed to rdma.
func (f FilterElement) String() string {
	return f.Key + " " + f.Value
}

// Filter groups the flat condition list into pairs. A trailing key without
// a value is reported as an element with an empty value.
func (d DumpCommand) Filter() Filter {
	var filter Filter
	for i := 0; i < len(d.Conditions); i += 2 {
		elt := FilterElement{Key: d.Conditions[i]}
		if i+1 < len(d.Conditions) {
			elt.Value = d.Conditions[i+1]
		}
		filter.Ands = append(filter.Ands, elt)
	}
	return filter
}

// Validate checks the fields that do not depend on the resource tables.
func (d DumpCommand) Validate() error {
	var missing []string
	if d.Resource == "" {
		missing = append(missing, "resource")
	}
	if d.Device == "" {
		missing = append(missing, "device")
	}
	if len(missing) > 0 {
		return errors.Errorf("required flag(s) %s not set", strings.Join(quote(missing), ", "))
	}
	if d.Jobs < 1 {
		return errors.Errorf("jobs must be at least 1, got %d", d.Jobs)
	}
	return nil
}

func quote(l []string) []string {
	q := make([]string, len(l))
	for i, s := range l {
		q[i] = `"` + s + `"`
	}
	return q
}
