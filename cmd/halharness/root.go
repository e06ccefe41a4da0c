package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/Honorable-Knights-of-the-Roundtable/halharness/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/device"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/halharness/pkg/hal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v       *viper.Viper
	out     io.Writer
	open    backendOpener
	logger  *slog.Logger
	hal     hal.HAL
	logFile *os.File
}

func run(ctx context.Context, args []string, out io.Writer, open backendOpener) error {
	a := &app{
		v:    viper.New(),
		out:  out,
		open: open,
	}
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() *cobra.Command {
	var configFilePath string

	rootCmd := &cobra.Command{
		Use:           "halharness",
		Short:         "Query and drive the audio hardware abstraction layer",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(configFilePath)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFilePath, "config", "config.yaml",
		"Set the file path to the config file.")
	rootCmd.PersistentFlags().String("backend", "",
		"HAL backend: simulated, coreaudio or portaudio (default simulated)")
	rootCmd.PersistentFlags().String("fixture", "",
		"YAML device fixture for the simulated backend (default built in)")
	rootCmd.PersistentFlags().String("loglevel", "",
		"Log level: none, error, warn, info or debug (default info)")
	for _, name := range []string{"backend", "fixture", "loglevel"} {
		if err := a.v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(
		a.listCommand(),
		a.defaultCommand(),
		a.switchCommand(),
		a.plugCommand(),
		a.watchCommand(),
		a.unitCommand(),
	)
	return rootCmd
}

func (a *app) setup(configFilePath string) error {
	if err := config.LoadConfig(a.v, configFilePath); err != nil {
		return err
	}

	logFilePointer, err := utils.ConfigureDefaultLogger(
		a.v.GetString("loglevel"),
		a.v.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		return err
	}
	a.logFile = logFilePointer
	a.logger = slog.Default()

	h, err := a.open(a.v.GetString("backend"), a.v.GetString("fixture"), a.logger)
	if err != nil {
		a.logger.Error("failed to open backend", "backend", a.v.GetString("backend"), "err", err)
		return err
	}
	a.hal = h
	a.logger.Debug("backend opened", "backend", a.v.GetString("backend"))
	return nil
}

func (a *app) devices() *device.API {
	return device.NewAPI(a.hal, a.logger)
}

func (a *app) close() {
	if a.logFile != nil {
		a.logFile.Close()
	}
}

func scopeArg(arg string) (hal.Scope, error) {
	scope, err := hal.ParseScope(arg)
	if err != nil {
		return 0, err
	}
	if !scope.Directional() {
		return 0, device.ErrScopeNotAllowed
	}
	return scope, nil
}
