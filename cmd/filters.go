package cmd

import (
	"fmt"
	"strings"

	"github.com/ryansann/rdmactx/rdma"
	"github.com/spf13/cobra"
)

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "filters [resource]",
		Short:     "filters lists the -c filters supported by each resource",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: rdma.ResourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			resources := rdma.Resources()
			if len(args) == 1 {
				if _, err := rdma.LookupKind(rdma.Resource(args[0])); err != nil {
					return err
				}
				resources = []rdma.Resource{rdma.Resource(args[0])}
			}
			fmt.Fprint(cmd.OutOrStdout(), resourceFilters(resources...))
			return nil
		},
	}
}

func filterHelp() string {
	return "Support filter args for -c:\n---------\n" + resourceFilters(rdma.Resources()...)
}

func resourceFilters(resources ...rdma.Resource) string {
	var sb strings.Builder
	for _, r := range resources {
		k, err := rdma.LookupKind(r)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "%s filters:\n", r)
		for _, f := range k.Filters {
			fmt.Fprintf(&sb, "%v\n", f)
		}
	}
	return sb.String()
}
