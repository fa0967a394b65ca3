package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/core/domain"
)

func newActionCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "action <action> <container>",
		Short: "Run an action on a container",
		Long: "Run an action on a container identified by name or id.\n\nActions: " +
			strings.Join(actionNames(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := domain.ParseAction(args[0])
			if err != nil {
				return err
			}

			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if dryRun {
				if a.CLI == nil {
					return errors.New("--dry-run needs engine.backend cli")
				}
				exe, argv, err := a.CLI.ActionCommand(action, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(append([]string{exe}, argv...), " "))
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), a.Config.Sync.ActionTimeout)
			defer cancel()

			containers, err := a.Engine.ListContainers(ctx)
			if err != nil {
				return err
			}
			idx, err := domain.Resolve(containers, args[1])
			if err != nil {
				return err
			}
			target := containers[idx]
			if !domain.Allowed(action, target.Status) {
				return errors.Wrapf(domain.ErrActionNotAllowed, "%s on %s container %s", action, target.Status, target.Name)
			}
			if err := a.Engine.RunAction(ctx, action, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", action, target.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the engine command instead of running it")
	return cmd
}

func actionNames() []string {
	names := make([]string, len(domain.Actions))
	for i, a := range domain.Actions {
		names[i] = a.String()
	}
	return names
}
