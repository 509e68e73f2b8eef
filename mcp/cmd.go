package mcp

import (
	"github.com/ka2n/cmsrelay/config"
	"github.com/spf13/cobra"
)

// Command returns the MCP server command. load is called once the flags are parsed.
func Command(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return NewServer(cfg).Run()
		},
	}
}
