package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	model "txbench/Model"
	"txbench/config"
	"txbench/logging"
	"txbench/metrics"
	pubsub2 "txbench/pubsub"
	"txbench/rpc"
	"txbench/workbench"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// app holds what a single invocation builds from its configuration.
type app struct {
	v       *viper.Viper
	cfgPath string
	cfg     config.Config
	logger  zerolog.Logger
	bench   *workbench.Workbench
	events  *pubsub2.PubSubClient
	closers []func() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{v: viper.New(), logger: zerolog.Nop()}
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "txbench",
		Short:         "Stage, sign and verify transactions before broadcast",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgPath, "config", "", "Config file (TOML)")
	flags.String("db-path", "", "Store directory")
	flags.String("rpc-url", "", "Remote node JSON-RPC URL")
	flags.String("log-level", "", "Log level")
	_ = a.v.BindPFlag("db_path", flags.Lookup("db-path"))
	_ = a.v.BindPFlag("rpc.url", flags.Lookup("rpc-url"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		a.txCmd(),
		a.cellCmd(),
		a.inputCmd(),
		a.keyCmd(),
		a.eventsCmd(),
		a.showConfCmd(),
	)
	return rootCmd
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.v, a.cfgPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New("txbench", logging.Options{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		File:   cfg.Log.File,
	})

	opts := []workbench.Option{workbench.WithLogger(a.logger)}

	if cfg.Signing.LockCodeHash != "" {
		codeHash, err := model.ParseHash(cfg.Signing.LockCodeHash)
		if err != nil {
			return err
		}
		opts = append(opts, workbench.WithSignatureLock(model.SignatureLock{CodeHash: codeHash}))
	}

	var remote rpc.Remote = rpc.NewClient(rpc.Config{
		URL:     cfg.RPC.URL,
		User:    cfg.RPC.User,
		Pass:    cfg.RPC.Pass,
		Timeout: cfg.RPC.Timeout,
	}, a.logger)
	if cfg.Redis.Addr != "" {
		cached := rpc.NewCachedRemote(remote, cfg.Redis.Addr, cfg.Redis.TTL, a.logger)
		a.closers = append(a.closers, cached.Close)
		remote = cached
	}
	opts = append(opts, workbench.WithRemote(remote))

	if cfg.PubSub.ProjectID != "" {
		ps, err := pubsub2.NewPubSubClient(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicPrefix, a.logger)
		if err != nil {
			a.logger.Warn().Err(err).Msg("events disabled")
		} else {
			a.events = ps
			a.closers = append(a.closers, ps.Close)
			opts = append(opts, workbench.WithNotifier(ps))
		}
	}

	a.bench = workbench.New(cfg.DBPath, opts...)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Debug().Err(err).Msg("close")
		}
	}
	if a.cfg.Metrics.Pushgateway != "" {
		if err := metrics.Push(a.cfg.Metrics.Pushgateway, a.cfg.Metrics.Job); err != nil {
			a.logger.Warn().Err(err).Msg("metrics push failed")
		}
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
