package cli

import (
	"github.com/mgriffin/simman/internal/history"
	"github.com/mgriffin/simman/internal/ui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the local simctl installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			report := svc.Diagnose(cmd.Context())
			renderer.RenderDoctor(report)

			if store, serr := history.NewFileStore(); serr == nil {
				if udid, ok := store.LastBooted(); ok {
					renderer.Dim("last booted: %s (%s)", udid, store.Path())
				} else {
					renderer.Dim("no recent device recorded (%s)", store.Path())
				}
			}
			return nil
		},
	}
}
