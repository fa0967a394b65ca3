package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/adapters/console"
	"github.com/melih/dockerbar/internal/core/domain"
)

func newPsCmd(opts *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List containers with the actions each one offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Sync.ListTimeout)
			defer cancel()
			containers, err := a.Engine.ListContainers(ctx)
			if err != nil {
				return err
			}

			if a.Config.Sync.HideUnknown && !all {
				shown := containers[:0]
				for _, c := range containers {
					if c.Status != domain.StatusUnknown {
						shown = append(shown, c)
					}
				}
				containers = shown
			}
			console.RenderTable(cmd.OutOrStdout(), containers)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include containers in an unknown state even when sync.hide_unknown is set")
	return cmd
}
