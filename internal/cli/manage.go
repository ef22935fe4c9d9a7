package cli

import (
	"github.com/mgriffin/simman/internal/ui"
	"github.com/spf13/cobra"
)

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <device-type> <runtime>",
		Short: "Create a new simulator",
		Example: `  simman create "My iPhone" "iPhone 15 Pro" "iOS 17.0"
  simman create Dev "iPhone 15" 17
  simman create WatchDev "Apple Watch Series 9 (45mm)" "watchOS 11"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			name, deviceType, runtime := args[0], args[1], args[2]

			renderer.StartSpinner("Creating %s...", name)
			udid, err := svc.Create(ctx, name, deviceType, runtime)
			if err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Created %s (%s)", name, udid)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <device>...",
		Short: "Delete one or more simulators",
		Long: `Delete simulators by name or UDID. Running devices are shut down
first. With several arguments the devices are removed in one batch call.`,
		Example: `  simman delete "My iPhone"
  simman delete old-a old-b old-c`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			if len(args) == 1 {
				renderer.StartSpinner("Deleting %s...", args[0])
				if err := svc.Delete(ctx, args[0]); err != nil {
					renderer.StopSpinner(false)
					return err
				}
				renderer.StopSpinner(true)
				renderer.Success("Deleted %s", args[0])
				return nil
			}

			renderer.StartSpinner("Deleting %d simulators...", len(args))
			if err := svc.BulkDelete(ctx, args); err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Deleted %d simulators", len(args))
			return nil
		},
	}
}
