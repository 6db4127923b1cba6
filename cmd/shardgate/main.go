package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nsrs/shardgate/pkg/catalog"
	"github.com/nsrs/shardgate/pkg/config"
	"github.com/nsrs/shardgate/pkg/sglog"
	"github.com/nsrs/shardgate/router/qrouter"
)

var (
	cfgPath  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "shardgate --config `path-to-config`",
	Short: "shard routing and coordination for the number inventory",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var (
			rendered string
			err      error
		)
		cfg, rendered, err = config.LoadConfig(cmd.Context(), cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		sglog.ReloadLogger(cfg.LogFile)
		if err := sglog.UpdateZeroLogLevel(cfg.LogLevel); err != nil {
			return err
		}
		sglog.Zero.Debug().Msg("shardgate: running config\n" + rendered)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (.yaml, .toml or .json)")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "override log level")

	rootCmd.AddCommand(routeCmd, tablesCmd, optimizeCmd, partitionCmd, sqlCmd, lockCmd, applyCmd, metricsCmd)
}

// newRouter builds the table router. The catalog is attached only when a DSN
// is configured; the returned closer is never nil.
func newRouter() (*qrouter.TableRouter, func(), error) {
	var opts []qrouter.Option
	closer := func() {}

	if cfg.Catalog.DSN != "" {
		c, err := catalog.NewSQLCatalog(&cfg.Catalog)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, qrouter.WithCatalog(c))
		closer = func() {
			if err := c.Close(); err != nil {
				sglog.Zero.Error().Err(err).Msg("shardgate: failed to close catalog")
			}
		}
	}

	r, err := qrouter.NewTableRouter(&cfg.Sharding, opts...)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return r, closer, nil
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		sglog.Zero.Fatal().Err(err).Msg("")
	}
}

func main() {
	Execute()
}
