package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mgriffin/simman/internal/sim"
	"github.com/mgriffin/simman/internal/ui"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	var (
		platform string
		booted   bool
		jsonOut  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List simulators",
		Example: `  simman list
  simman list --platform ios
  simman list --booted
  simman list --json
  simman list types
  simman list runtimes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}

			devices, err := svc.ListDevices(ctx)
			if err != nil {
				return fmt.Errorf("failed to list devices: %w", err)
			}

			platform = strings.ToLower(platform)
			filtered := devices[:0]
			for _, d := range devices {
				if platform != "" && string(d.Platform()) != platform {
					continue
				}
				if booted && d.State != sim.StateBooted {
					continue
				}
				filtered = append(filtered, d)
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(filtered)
			}

			ui.NewRenderer().RenderDeviceTable(filtered)
			return nil
		},
	}

	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Filter by platform (ios, watchos, tvos, visionos)")
	cmd.Flags().BoolVar(&booted, "booted", false, "Show only booted devices")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	cmd.AddCommand(listTypesCmd())
	cmd.AddCommand(listRuntimesCmd())

	return cmd
}

func listTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List available device types",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			types, err := svc.ListDeviceTypes(cmd.Context())
			if err != nil {
				return err
			}
			ui.NewRenderer().RenderDeviceTypes(types)
			return nil
		},
	}
}

func listRuntimesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runtimes",
		Short: "List available runtimes",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService()
			if err != nil {
				return err
			}
			runtimes, err := svc.ListRuntimes(cmd.Context())
			if err != nil {
				return err
			}
			ui.NewRenderer().RenderRuntimes(runtimes)
			return nil
		},
	}
}
