package cli

import (
	"fmt"

	"github.com/mgriffin/simman/internal/history"
	"github.com/mgriffin/simman/internal/ui"
	"github.com/spf13/cobra"
)

func bootCmd() *cobra.Command {
	var runtime string

	cmd := &cobra.Command{
		Use:   "boot [device]",
		Short: "Boot a simulator and wait until it is usable",
		Long: `Boot a simulator by name or UDID and poll until it reports Booted.
With no argument, the most recently booted device is used.`,
		Example: `  simman boot "iPhone 15 Pro"
  simman boot "iPhone 15" --runtime "iOS 17"
  simman boot 12345678-1234-1234-1234-123456789ABC
  simman boot`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			} else if store, serr := history.NewFileStore(); serr == nil {
				identifier, _ = store.LastBooted()
			}
			if identifier == "" {
				return fmt.Errorf("no device given and no recently booted device on record")
			}

			renderer.StartSpinner("Booting %s...", identifier)
			dev, err := svc.Boot(ctx, identifier, runtime)
			if err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Booted %s (%s)", dev.Name, dev.OSVersion())
			return nil
		},
	}

	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "Disambiguate same-name devices by runtime (e.g. \"iOS 17\")")
	return cmd
}

func shutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown [device]",
		Short: "Shut down one simulator, or all of them",
		Example: `  simman shutdown
  simman shutdown all
  simman shutdown "iPhone 15 Pro"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			identifier := ""
			if len(args) == 1 {
				identifier = args[0]
			}

			label := identifier
			if label == "" || label == "all" {
				label = "all simulators"
			}
			renderer.StartSpinner("Shutting down %s...", label)
			if err := svc.Shutdown(ctx, identifier); err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Shut down %s", label)
			return nil
		},
	}
}

func eraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase <device>",
		Short: "Factory-reset a simulator",
		Long:  `Erase all content and settings. A running device is shut down first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			renderer.StartSpinner("Erasing %s...", args[0])
			if err := svc.Erase(ctx, args[0]); err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Erased %s", args[0])
			return nil
		},
	}
}

func installCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install <app-path> <device>",
		Short: "Install an app bundle onto a running simulator",
		Example: `  simman install ./build/MyApp.app "iPhone 15 Pro"
  simman install ./MyApp.app 12345678-1234-1234-1234-123456789ABC`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService()
			if err != nil {
				return err
			}
			renderer := ui.NewRenderer()

			renderer.StartSpinner("Installing %s...", args[0])
			if err := svc.Install(ctx, args[0], args[1]); err != nil {
				renderer.StopSpinner(false)
				return err
			}
			renderer.StopSpinner(true)
			renderer.Success("Installed %s on %s", args[0], args[1])
			return nil
		},
	}
}
