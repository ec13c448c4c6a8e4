package cmd

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/armadaproject/loadgate/internal/common/gatecontext"
	"github.com/armadaproject/loadgate/internal/loadgate"
	"github.com/armadaproject/loadgate/internal/loadgate/configuration"
)

// Run every test plan and fail if the results contain errors or failures.
func runCmd(app *loadgate.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test plans and fail on errors or failures in their results.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Stops dispatching further tests on SIGINT/SIGTERM.
			// Engines that are already running are left to finish.
			ctx, cancel := gatecontext.WithCancel(gatecontext.Background())
			defer cancel()
			stopSignal := make(chan os.Signal, 1)
			signal.Notify(stopSignal, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(stopSignal)
			go func() {
				select {
				case <-ctx.Done():
					return
				case <-stopSignal:
					log.Warn("Interrupted, no further tests will be started")
					cancel()
				}
			}()

			return app.Run(ctx)
		},
	}
	configuration.AddFlags(cmd.Flags())
	return cmd
}
