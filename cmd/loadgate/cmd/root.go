package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/armadaproject/loadgate/internal/common"
	"github.com/armadaproject/loadgate/internal/common/gateerrors"
	"github.com/armadaproject/loadgate/internal/loadgate"
	"github.com/armadaproject/loadgate/internal/loadgate/configuration"
)

const (
	configFlag   = "config"
	logLevelFlag = "log-level"
)

// RootCmd is the root Cobra command that gets called from the main func.
// All other sub-commands should be registered here.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadgate",
		Short: "loadgate runs load tests as a pass/fail gate of a build.",
		Long: `loadgate runs every test plan in a directory through the engine, scans the results
and fails if they contain errors or failures.

Persistent config can be saved in a config file so it doesn't have to be specified every command.

Example structure:
testFilesDir: src/test/jmeter
artifacts:
  manifest: target/artifacts.yaml
properties:
  mode: merge
  overrides:
    - category: user
      key: threads
      value: "10"

The location of this file can be passed in using the --config argument.
If not provided, .loadgate.yaml in the working directory or $HOME is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := cmd.Flags().GetString(logLevelFlag)
			if err != nil {
				return err
			}
			if err := common.SetLogLevel(level); err != nil {
				return err
			}
			return common.AddLogMetricsHook()
		},
	}

	cmd.PersistentFlags().String(configFlag, "", "Config file (default is .loadgate.yaml in the working directory or $HOME)")
	cmd.PersistentFlags().String(logLevelFlag, "info", "Log level, e.g., debug, info or warn")

	cmd.AddCommand(
		versionCmd(loadgate.New()),
		runCmd(loadgate.New()),
		configCmd(loadgate.New()),
		historyCmd(loadgate.New()),
	)

	return cmd
}

// Print version info and exit.
func versionCmd(app *loadgate.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			return app.Version()
		},
	}
	return cmd
}

// Print the config resolved from the config file, environment and flags.
func configCmd(app *loadgate.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML.",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initParams(cmd, app)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.PrintConfig()
		},
	}
	configuration.AddFlags(cmd.Flags())
	return cmd
}

func initParams(cmd *cobra.Command, app *loadgate.App) error {
	cfgFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return err
	}
	config, err := configuration.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	app.Params.Config = config
	app.Out = cmd.OutOrStdout()
	return nil
}

// ErrorMessage formats an error returned by the root command for the user.
func ErrorMessage(err error) string {
	if gateerrors.IsInvalidArgument(err) {
		return fmt.Sprintf("Invalid configuration: %s", err)
	}
	return err.Error()
}
