package cmd

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/ryansann/rdmactx/rdma"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	mtx     sync.Mutex
	calls   []string
	listing string
	listErr error
	rawErr  error
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	s.mtx.Lock()
	s.calls = append(s.calls, strings.Join(append([]string{name}, args...), " "))
	s.mtx.Unlock()

	if args[len(args)-1] == "-jpr" {
		if s.rawErr != nil {
			return nil, s.rawErr
		}
		return []byte(`[{"` + args[len(args)-3] + `":` + args[len(args)-2] + `}]`), nil
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return []byte(s.listing), nil
}

type result struct {
	code   int
	stdout string
	stderr string
}

func stubTool(t *testing.T, r *stubRunner) afero.Fs {
	t.Helper()
	memFs := afero.NewMemMapFs()
	runner, fs, configFile = r, memFs, ""
	t.Cleanup(func() {
		runner, fs, configFile = nil, afero.NewOsFs(), ""
	})
	return memFs
}

func execute(args ...string) result {
	c := newRootCmd()
	var stdout, stderr bytes.Buffer
	c.SetOut(&stdout)
	c.SetErr(&stderr)
	c.SetArgs(args)
	code := report(c, c.ExecuteContext(context.Background()))
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestDumpQPByIndex(t *testing.T) {
	r := &stubRunner{listing: `[{"ifindex":4,"ifname":"hns_4","lqpn":22,"type":"RC"}]`}
	memFs := stubTool(t, r)

	res := execute("-r", "qp", "-d", "hns_4", "-j", "64", "-c", "lqpn", "22", "-o", "/out")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "Dump all rdma res ctx succ! Archived in /out/rdma_res_ctx/qpc\n", res.stdout)

	data, err := afero.ReadFile(memFs, "/out/rdma_res_ctx/qpc/qpc_22.log")
	require.NoError(t, err)
	assert.Equal(t, `[{"lqpn":22}]`, string(data))

	assert.Equal(t, []string{
		"rdma res show qp link hns_4/1 lqpn 22 -j -dd",
		"rdma res show qp link hns_4/1 lqpn 22 -jpr",
	}, r.calls)
}

func TestDumpForwardsTwoPairs(t *testing.T) {
	r := &stubRunner{listing: `[{"mrn":3,"pid":16734,"pdn":782}]`}
	stubTool(t, r)

	res := execute("-r", "mr", "-d", "hns_4", "-c", "pid", "16734", "pdn", "782", "-o", "/out")
	require.Equal(t, 0, res.code, res.stderr)
	require.NotEmpty(t, r.calls)
	assert.Equal(t, "rdma res show mr dev hns_4 pid 16734 pdn 782 -j -dd", r.calls[0])
}

func TestDumpCustomTool(t *testing.T) {
	r := &stubRunner{listing: `[]`}
	stubTool(t, r)

	res := execute("-r", "cq", "-d", "hns_4", "-o", "/out", "--tool", "sudo -n rdma")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, []string{"sudo -n rdma res show cq dev hns_4 -j -dd"}, r.calls)
}

func TestDumpRejectsInput(t *testing.T) {
	cases := []struct {
		name string
		args []string
		msg  string
	}{
		{"too many tokens", []string{"-r", "qp", "-d", "hns_4", "-c", "lqpn", "1", "pid", "2", "pdn"}, "Error: -c: no more than 4 inputs"},
		{"unknown filter", []string{"-r", "cq", "-d", "hns_4", "-c", "lqpn", "1"}, "Error: -c: condition error detected"},
		{"bad value", []string{"-r", "qp", "-d", "hns_4", "-c", "lqpn", "abc"}, "Error: -c: condition error detected"},
		{"missing device", []string{"-r", "qp"}, `Error: required flag(s) "device" not set`},
		{"unknown resource", []string{"-r", "pd", "-d", "hns_4"}, `Error: -r: unsupported resource "pd"`},
		{"stray arguments", []string{"-r", "qp", "-d", "hns_4", "lqpn", "1"}, "Error: unrecognized arguments: lqpn 1"},
		{"no jobs", []string{"-r", "qp", "-d", "hns_4", "-j", "0"}, "Error: jobs must be at least 1, got 0"},
		{"bad flag", []string{"-r", "qp", "-d", "hns_4", "--bogus"}, "Error: unknown flag: --bogus"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := &stubRunner{listing: `[]`}
			stubTool(t, r)

			res := execute(c.args...)
			assert.Equal(t, 1, res.code)
			assert.Contains(t, res.stderr, c.msg)
			assert.Contains(t, res.stderr, "usage: rdmactx")
			assert.Empty(t, r.calls)
		})
	}
}

func TestDumpPropagatesToolExitCode(t *testing.T) {
	r := &stubRunner{listErr: &rdma.ToolError{Args: []string{"rdma"}, ExitCode: 255, Stderr: "Wrong device name"}}
	stubTool(t, r)

	res := execute("-r", "qp", "-d", "nodev")
	assert.Equal(t, 255, res.code)
	assert.Empty(t, res.stdout)
	assert.Len(t, r.calls, 1)
}

func TestDumpReportsFailedInstances(t *testing.T) {
	r := &stubRunner{
		listing: `[{"srqn":1,"drv_srqn":7}]`,
		rawErr:  &rdma.ToolError{Args: []string{"rdma"}, ExitCode: 2, Stderr: "EINVAL"},
	}
	memFs := stubTool(t, r)

	res := execute("-r", "srq", "-d", "hns_4", "-o", "/out")
	assert.Equal(t, 1, res.code)
	assert.NotContains(t, res.stdout, "succ")

	exists, _ := afero.Exists(memFs, "/out/rdma_res_ctx/srqc/srqc_7.log")
	assert.False(t, exists)
}

func TestFiltersCmd(t *testing.T) {
	stubTool(t, &stubRunner{})

	res := execute("filters", "qp")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "qp filters:\nfilter: link is_number: false\nfilter: lqpn is_number: true\n"))
	assert.NotContains(t, res.stdout, "mr filters:")

	res = execute("filters")
	require.Equal(t, 0, res.code)
	for _, r := range rdma.ResourceNames() {
		assert.Contains(t, res.stdout, r+" filters:")
	}

	res = execute("filters", "ah")
	assert.Equal(t, 1, res.code)
}

func TestHelpListsFilters(t *testing.T) {
	res := execute("--help")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Support filter args for -c:")
	assert.Contains(t, res.stdout, "filter: poll-ctx is_number: false")
	assert.Contains(t, res.stdout, "rdmactx -r qp -d hns_4 -j 64 -c lqpn 22")
}
