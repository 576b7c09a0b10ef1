package command

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	app         = "tree-new-bee"
	version     = "v0.2.0"
	releaseTime = "2026-10"
)

const logo = `
  _                                              _
 | |_ _ __ ___  ___       _ __   _____      __  | |__   ___  ___
 | __| '__/ _ \/ _ \_____| '_ \ / _ \ \ /\ / /  | '_ \ / _ \/ _ \
 | |_| | |  __/  __/_____| | | |  __/\ V  V /   | |_) |  __/  __/
  \__|_|  \___|\___|     |_| |_|\___| \_/\_/    |_.__/ \___|\___|
`

const usageformat = `%s
%s %s, released %s
Decode redis rdb files and migrate them to a standalone, cluster or proxied target.

`

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "bee",
	Short:         "Redis rdb decoder and migration tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (default: info, or [log] level of the config)")
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		banner(cmd.OutOrStderr())
		defaultHelp(cmd, args)
	})
}

func banner(w io.Writer) {
	fmt.Fprintf(w, usageformat, logo, color.GreenString(app), color.YellowString(version), releaseTime)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		return 1
	}
	return 0
}

// newLogger builds the process logger. level from the flag wins over fallback.
func newLogger(fallback string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = os.Stderr
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	name := logLevel
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = "info"
	}
	level, err := logrus.ParseLevel(name)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	log.SetLevel(level)
	return log, nil
}
