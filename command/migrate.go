package command

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/8090Lambert/tree-new-bee/boot"
	"github.com/8090Lambert/tree-new-bee/config"
	"github.com/8090Lambert/tree-new-bee/metrics"
	"github.com/spf13/cobra"
)

var configPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Replay rdb files on a target redis",
	Long: `Replay every rdb file listed in [source] servers on the [target] servers.

The config file is --config, else $BEE_CFG, else ./bee.toml.

Example:
  bee migrate --config bee.toml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Path(configPath))
		if err != nil {
			return err
		}
		log, err := newLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return boot.Migrate(ctx, cfg, log, metrics.New())
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&configPath, "config", "", "path of the toml config file")
}
