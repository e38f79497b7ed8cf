package rdma

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Entry is one instance of a resource listing.
type Entry struct {
	Index       string
	DriverIndex string
}

// ParseListing extracts the primary and driver index of every element of a
// `rdma res show -j` array. Duplicated indexes keep their first position and
// their last driver index.
func ParseListing(k Kind, data []byte) ([]Entry, error) {
	if err := checkJSON(data); err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(data)
	if !res.IsArray() {
		return nil, errors.Errorf("expected a json array, got %s", res.Type)
	}

	var entries []Entry
	pos := make(map[string]int)
	var perr error
	i := 0
	res.ForEach(func(_, elt gjson.Result) bool {
		defer func() { i++ }()
		idx := elt.Get(k.IndexField)
		drv := elt.Get(k.DriverIndexField)
		if !idx.Exists() || !drv.Exists() {
			perr = errors.Errorf("element %d lacks %s or %s: %s", i, k.IndexField, k.DriverIndexField, elt.Raw)
			return false
		}

		e := Entry{Index: idx.String(), DriverIndex: drv.String()}
		if p, ok := pos[e.Index]; ok {
			entries[p] = e
			return true
		}
		pos[e.Index] = len(entries)
		entries = append(entries, e)
		return true
	})
	if perr != nil {
		return nil, perr
	}

	return entries, nil
}

func checkJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return errors.New("empty output")
	}
	if !gjson.ValidBytes(data) {
		return errors.New("output is not valid json")
	}
	return nil
}

// Compact strips insignificant whitespace from a json document.
func Compact(data []byte) []byte {
	return pretty.Ugly(data)
}
