package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfg "github.com/hackfest-dev/Hackfest25-45/config"
)

type app struct {
	configPath string
	envFile    string

	conf *cfg.Root
	log  *logrus.Logger
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "handspeaks",
		Short:         "Turn wearable motion gestures into spoken sentences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default config/<CONFIG_ENV>/config.yaml)")
	root.PersistentFlags().StringVar(&a.envFile, "env", ".env", "dotenv file with API keys")
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(a.serveCmd(), a.replayCmd(), a.configCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "handspeaks:", err)
		stop()
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	if err := godotenv.Load(a.envFile); err != nil && !(errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("env")) {
		return fmt.Errorf("load %s: %w", a.envFile, err)
	}

	conf, err := cfg.Load(a.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(conf, cfg.NewViper(cmd.Flags()))
	a.conf = conf
	a.log = newLogger(conf.Pipeline.LogLvl)
	return nil
}

func newLogger(level string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		l.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.conf.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
