package cmd

import (
	"fmt"
	"strings"

	"github.com/ryansann/rdmactx/config"
	"github.com/ryansann/rdmactx/rdma"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// fs receives the archive
var fs afero.Fs = afero.NewOsFs()

// runDump validates the request, lists the matching resources and archives
// the raw context of each of them
func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := initConfig()
	if err != nil {
		return err
	}

	logrus.Debug("running dump command")

	dump, err := dumpConfig(cmd, cfg.Dump, args)
	if err != nil {
		return err
	}

	for _, f := range dump.Filter().Ands {
		logrus.Debugf("filter: %v", f)
	}

	cli, err := rdma.NewClient(cfg.Tool, runner)
	if err != nil {
		return err
	}

	archiver := rdma.NewArchiver(cli)
	archiver.Fs = fs
	archiver.Compact = dump.Compact
	res, err := archiver.Dump(cmd.Context(), rdma.DumpRequest{
		Resource:   rdma.Resource(dump.Resource),
		Device:     dump.Device,
		Conditions: dump.Conditions,
		OutputDir:  dump.OutputDir,
		Jobs:       dump.Jobs,
	})
	if err != nil {
		return err
	}

	if err := res.Err(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dump all rdma res ctx succ! Archived in %s\n", res.Dir)
	return nil
}

// dumpConfig completes the dump configuration with the tokens following -c,
// which pflag leaves as positional arguments.
func dumpConfig(cmd *cobra.Command, dump config.DumpCommand, args []string) (config.DumpCommand, error) {
	if len(args) > 0 {
		if !cmd.Flags().Changed(config.KeyCondition) {
			return dump, &rdma.ValidationError{
				Msg:    "unrecognized arguments: " + strings.Join(args, " "),
				Detail: strings.Join(args, " "),
			}
		}
		dump.Conditions = append(append([]string(nil), dump.Conditions...), args...)
	}

	if err := dump.Validate(); err != nil {
		return dump, &rdma.ValidationError{Msg: err.Error()}
	}

	if err := rdma.ValidateConditions(rdma.Resource(dump.Resource), dump.Conditions); err != nil {
		return dump, err
	}

	return dump, nil
}
