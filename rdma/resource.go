package rdma

import (
	"fmt"
	"sort"
	"strings"
)

// Resource is an rdma resource kind as understood by `rdma res show`.
type Resource string

const (
	MR  Resource = "mr"
	CQ  Resource = "cq"
	QP  Resource = "qp"
	SRQ Resource = "srq"
)

// Kind describes how a resource is indexed, named on disk and filtered.
type Kind struct {
	Resource Resource
	// IndexField is the kernel index used to narrow a query to one instance.
	IndexField string
	// DriverIndexField is the driver assigned index, used only for file names.
	DriverIndexField string
	// Context is the context type label (qpc, cqc, mpt, srqc).
	Context string
	Filters []Filter
}

var kinds = map[Resource]Kind{
	MR: {
		Resource:         MR,
		IndexField:       "mrn",
		DriverIndexField: "mrn",
		Context:          "mpt",
		Filters: []Filter{
			{Name: "dev"},
			{Name: "rkey", Numeric: true},
			{Name: "lkey", Numeric: true},
			{Name: "mrlen", Numeric: true},
			{Name: "pid", Numeric: true},
			{Name: "mrn", Numeric: true},
			{Name: "pdn", Numeric: true},
		},
	},
	CQ: {
		Resource:         CQ,
		IndexField:       "cqn",
		DriverIndexField: "drv_cqn",
		Context:          "cqc",
		Filters: []Filter{
			{Name: "dev"},
			{Name: "users", Numeric: true},
			{Name: "poll-ctx"},
			{Name: "pid", Numeric: true},
			{Name: "cqn", Numeric: true},
			{Name: "ctxn", Numeric: true},
		},
	},
	QP: {
		Resource:         QP,
		IndexField:       "lqpn",
		DriverIndexField: "lqpn",
		Context:          "qpc",
		Filters: []Filter{
			{Name: "link"},
			{Name: "lqpn", Numeric: true},
			{Name: "rqpn", Numeric: true},
			{Name: "pid", Numeric: true},
			{Name: "sq-psn", Numeric: true},
			{Name: "rq-psn", Numeric: true},
			{Name: "type"},
			{Name: "path-mig-state"},
			{Name: "state"},
			{Name: "pdn", Numeric: true},
		},
	},
	SRQ: {
		Resource:         SRQ,
		IndexField:       "srqn",
		DriverIndexField: "drv_srqn",
		Context:          "srqc",
		Filters: []Filter{
			{Name: "dev"},
			{Name: "pid", Numeric: true},
			{Name: "srqn", Numeric: true},
			{Name: "type"},
			{Name: "pdn", Numeric: true},
			{Name: "cqn", Numeric: true},
			{Name: "lqpn", Numeric: true},
		},
	},
}

// Resources returns the supported resource kinds in help order.
func Resources() []Resource {
	return []Resource{MR, CQ, QP, SRQ}
}

// ResourceNames returns the supported resource kinds as plain strings.
func ResourceNames() []string {
	var names []string
	for _, r := range Resources() {
		names = append(names, string(r))
	}
	return names
}

// LookupKind returns the description of r. The returned Kind owns its Filters slice.
func LookupKind(r Resource) (Kind, error) {
	k, ok := kinds[r]
	if !ok {
		return Kind{}, &ValidationError{
			Msg:    fmt.Sprintf("-r: unsupported resource %q, expected one of %s", r, strings.Join(ResourceNames(), ", ")),
			Detail: string(r),
		}
	}
	k.Filters = append([]Filter(nil), k.Filters...)
	return k, nil
}

// Filter returns the filter named name, if the kind allows it.
func (k Kind) Filter(name string) (Filter, bool) {
	for _, f := range k.Filters {
		if f.Name == name {
			return f, true
		}
	}
	return Filter{}, false
}

// FilterNames returns the sorted names of the filters the kind allows.
func (k Kind) FilterNames() []string {
	names := make([]string, 0, len(k.Filters))
	for _, f := range k.Filters {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Selector returns the device selector tokens of a `rdma res show` query.
// Queue pairs are namespaced by link, so the device is addressed as port 1.
func (k Kind) Selector(device string) []string {
	if k.Resource == QP {
		return []string{"link", device + "/1"}
	}
	return []string{"dev", device}
}

// FileName returns the archive file name of the instance with driver index drvIdx.
func (k Kind) FileName(drvIdx string) string {
	return fmt.Sprintf("%s_%s.log", k.Context, drvIdx)
}
