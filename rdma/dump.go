package rdma

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const (
	// ArchiveDir is the directory created under the output dir.
	ArchiveDir = "rdma_res_ctx"

	// DefaultJobs is the default number of concurrent raw dumps.
	DefaultJobs = 64
)

// DumpRequest selects the resources to archive and where.
type DumpRequest struct {
	Resource   Resource
	Device     string
	Conditions []string
	// OutputDir defaults to the current working directory.
	OutputDir string
	Jobs      int
}

// Failure records a resource instance whose context could not be archived.
type Failure struct {
	Index       string
	DriverIndex string
	Path        string
	Err         error
}

// Report summarizes a dump.
type Report struct {
	Dir       string
	Total     int
	Succeeded int
	Failed    []Failure
}

// Err returns nil when every instance was archived, or an error naming the
// failed indexes otherwise.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	idx := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		idx = append(idx, f.Index)
	}
	return errors.Errorf("%d of %d rdma res ctx dumps failed (%d succeeded), failed indexes: %s",
		len(r.Failed), r.Total, r.Succeeded, strings.Join(idx, ", "))
}

// Archiver writes per-instance raw resource contexts to disk.
type Archiver struct {
	Client *Client
	Fs     afero.Fs
	// Compact rewrites each raw context as compact json instead of
	// writing the tool output verbatim.
	Compact bool
}

// NewArchiver returns an archiver writing to the OS filesystem.
func NewArchiver(c *Client) *Archiver {
	return &Archiver{Client: c, Fs: afero.NewOsFs()}
}

// Dir returns the directory receiving the contexts of resource r.
func Dir(outputDir string, r Resource) (string, error) {
	k, err := LookupKind(r)
	if err != nil {
		return "", err
	}

	if outputDir == "" {
		outputDir, err = os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "resolve current directory")
		}
	}

	return filepath.Join(outputDir, ArchiveDir, k.Context), nil
}

// Dump lists the instances matching req and archives the raw context of each
// one, running at most req.Jobs tool invocations at once. Validation and
// listing errors abort the dump; per-instance errors are collected in the
// returned report.
func (a *Archiver) Dump(ctx context.Context, req DumpRequest) (*Report, error) {
	k, err := LookupKind(req.Resource)
	if err != nil {
		return nil, err
	}

	if err := ValidateConditions(req.Resource, req.Conditions); err != nil {
		return nil, err
	}

	if req.Jobs < 1 {
		return nil, &ValidationError{
			Msg:    fmt.Sprintf("-j: jobs must be at least 1, got %d", req.Jobs),
			Detail: fmt.Sprint(req.Jobs),
		}
	}

	dir, err := Dir(req.OutputDir, req.Resource)
	if err != nil {
		return nil, err
	}

	if err := a.Fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "create %s", dir)
	}

	entries, err := a.Client.List(ctx, req.Resource, req.Device, req.Conditions)
	if err != nil {
		return nil, err
	}

	report := &Report{Dir: dir, Total: len(entries)}
	var mtx sync.Mutex

	var g errgroup.Group
	g.SetLimit(req.Jobs)
	for _, e := range entries {
		e := e
		path := filepath.Join(dir, k.FileName(e.DriverIndex))
		g.Go(func() error {
			err := a.DumpOne(ctx, req.Resource, req.Device, e.Index, path)

			mtx.Lock()
			defer mtx.Unlock()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"index": e.Index,
					"path":  path,
				}).Errorf("dump %s context failed: %v", req.Resource, err)
				report.Failed = append(report.Failed, Failure{
					Index:       e.Index,
					DriverIndex: e.DriverIndex,
					Path:        path,
					Err:         err,
				})
				return nil
			}
			report.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failed, func(i, j int) bool {
		return lessIndex(report.Failed[i].Index, report.Failed[j].Index)
	})

	return report, nil
}

// DumpOne archives the raw context of the instance with primary index idx to path.
func (a *Archiver) DumpOne(ctx context.Context, r Resource, device, idx, path string) error {
	raw, err := a.Client.Raw(ctx, r, device, idx)
	if err != nil {
		return err
	}

	if a.Compact {
		raw = Compact(raw)
	}

	if err := afero.WriteFile(a.Fs, path, raw, 0644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	logrus.Debugf("wrote %s", path)
	return nil
}

// lessIndex orders numeric indexes numerically and anything else lexically.
func lessIndex(a, b string) bool {
	if isDigits(a) && isDigits(b) && len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
