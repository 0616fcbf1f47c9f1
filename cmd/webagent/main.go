package main

import (
	"fmt"
	"os"

	"github.com/mohammad-safakhou/webagent/config"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCMD().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:           "webagent",
		Short:         "Multi-role web research agent",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default searches ./config and .)")
	load := func() (*config.Config, error) { return config.LoadConfig(cfgPath) }

	root.AddCommand(researchCMD(load), toolCMD(load), serveCMD(load), watchCMD(load))
	return root
}

type loader func() (*config.Config, error)
