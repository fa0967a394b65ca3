package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/melih/dockerbar/internal/adapters/console"
)

func newStopAllCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-all",
		Short: "Stop every running or paused container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			_, notifications, err := a.Hub.Subscribe()
			if err != nil {
				return err
			}
			a.Dispatcher.StopAll()
			go func() {
				a.Dispatcher.Wait()
				a.Hub.Close()
			}()

			w := console.NewWatcher(cmd.OutOrStdout())
			failed := 0
			for n := range notifications {
				w.Print(n)
				if n.Action != nil && n.Action.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return errors.Errorf("%d containers failed to stop", failed)
			}
			return nil
		},
	}
}
