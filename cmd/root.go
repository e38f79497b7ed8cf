package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/ryansann/rdmactx/config"
	"github.com/ryansann/rdmactx/rdma"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const usageLine = "rdmactx [-h] -r {mr,cq,qp,srq} -d DEVICE [-c filter1 value1 ...] [-o OUTPUT_DIR] [-j JOBS]"

const examples = `Dump filtered QP resource context json:
    rdmactx -r qp -d hns_4 -j 64 -c lqpn 22
    rdmactx -r qp -d hns_4 -j 64 -c lqpn 1-1000
    rdmactx -r qp -d hns_4 -j 64 -c type RC
    rdmactx -r qp -d hns_4 -j 64 -c pid 16734 pdn 782
Dump filtered CQ resource context json:
    rdmactx -r cq -d hns_4 -j 64 -c cqn 22
Dump filtered MR resource context json:
    rdmactx -r mr -d hns_4 -j 64 -c mrn 22
Dump filtered SRQ resource context json:
    rdmactx -r srq -d hns_4 -j 64 -c srqn 22`

var (
	configFile string
	v          *viper.Viper

	// runner executes the rdma tool, nil means os/exec
	runner rdma.Runner
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	c := &cobra.Command{
		Use:           "rdmactx",
		Short:         "rdmactx dumps filtered rdma resource context json",
		Long:          "rdmactx lists rdma resources (" + strings.Join(rdma.ResourceNames(), ", ") + ") with the rdma tool, filters them and archives the raw context of every match.\n\n" + filterHelp(),
		Example:       examples,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runDump,
	}

	v = config.NewViper()

	flags := c.Flags()
	flags.StringP(config.KeyResource, "r", "", "Specify an RDMA resource: "+strings.Join(rdma.ResourceNames(), ", "))
	flags.StringP(config.KeyDevice, "d", "", "Specify an RDMA device")
	flags.StringArrayP(config.KeyCondition, "c", nil, "Specify the RDMA resource context filter condition, no more than 4 inputs")
	flags.StringP(config.KeyOutputDir, "o", "", "RDMA resource context archive dir (default current directory)")
	flags.IntP(config.KeyJobs, "j", rdma.DefaultJobs, "Allow N jobs at once")
	flags.String(config.KeyTool, rdma.DefaultTool, "rdma tool command, may include a prefix such as sudo")
	flags.Bool(config.KeyCompact, false, "Rewrite each context as compact json instead of the raw tool output")
	c.PersistentFlags().Bool(config.KeyDebug, false, "Enable debug logging")
	c.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file providing flag defaults")

	for _, key := range []string{config.KeyResource, config.KeyDevice, config.KeyCondition, config.KeyOutputDir, config.KeyJobs, config.KeyTool, config.KeyCompact} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
	_ = v.BindPFlag(config.KeyDebug, c.PersistentFlags().Lookup(config.KeyDebug))

	c.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &rdma.ValidationError{Msg: err.Error()}
	})
	c.AddCommand(newFiltersCmd())

	return c
}

func initConfig() (config.Root, error) {
	if err := config.ReadFile(v, configFile); err != nil {
		return config.Root{}, err
	}

	cfg := config.Load(v)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if configFile != "" {
		logrus.Debugf("using config file: %v", configFile)
	}

	return cfg, nil
}

// Execute runs the rdmactx root command and exits with its status
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	os.Exit(report(rootCmd, err))
}

// report prints err and returns the process exit status for it.
func report(c *cobra.Command, err error) int {
	if err == nil {
		return 0
	}

	var verr *rdma.ValidationError
	if errors.As(err, &verr) {
		if verr.Detail != "" {
			logrus.Debugf("rejected input: %s", verr.Detail)
		}
		fmt.Fprintf(c.ErrOrStderr(), "Error: %s\n", verr.Msg)
		fmt.Fprintf(c.ErrOrStderr(), "usage: %s\n", usageLine)
		return 1
	}

	var terr *rdma.ToolError
	if errors.As(err, &terr) {
		logrus.Error(err)
		if terr.ExitCode > 0 {
			return terr.ExitCode
		}
		return 1
	}

	logrus.Error(err)
	return 1
}
