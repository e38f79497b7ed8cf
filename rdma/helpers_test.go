package rdma

import (
	"context"
	"strings"
	"sync"
)

// fakeRunner answers listing queries with listing and raw queries through raw.
type fakeRunner struct {
	mtx     sync.Mutex
	calls   [][]string
	listing string
	listErr error
	raw     func(idx string) (string, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mtx.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mtx.Unlock()

	if args[len(args)-1] == rawFlag {
		if f.raw == nil {
			return []byte("[]"), nil
		}
		out, err := f.raw(args[len(args)-2])
		if err != nil {
			return nil, err
		}
		return []byte(out), nil
	}

	if f.listErr != nil {
		return nil, f.listErr
	}
	return []byte(f.listing), nil
}

func (f *fakeRunner) Calls() [][]string {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([][]string(nil), f.calls...)
}

func (f *fakeRunner) rawCalls() [][]string {
	var l [][]string
	for _, c := range f.Calls() {
		if c[len(c)-1] == rawFlag {
			l = append(l, c)
		}
	}
	return l
}

func joined(l []string) string {
	return strings.Join(l, " ")
}
