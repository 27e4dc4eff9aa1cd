package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KNICEX/decision-agent/internal/config"
	"github.com/KNICEX/decision-agent/internal/entity"
	"github.com/KNICEX/decision-agent/internal/repo"
	"github.com/KNICEX/decision-agent/internal/schedule"
	"github.com/KNICEX/decision-agent/internal/service/pipeline"
	"github.com/KNICEX/decision-agent/internal/trace"
	"github.com/KNICEX/decision-agent/internal/web"
	"github.com/KNICEX/decision-agent/ioc"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initViper(file string) {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		panic(fmt.Errorf("load .env: %w", err))
	}

	viper.SetConfigFile(file)
	viper.SetEnvPrefix("DECISION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %s \n", err))
	}
}

// app 各子命令共用的依赖
type app struct {
	cfg       config.Config
	decisions repo.DecisionRepo
	shutdown  []func(ctx context.Context) error
}

func newApp() *app {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		panic(err)
	}
	ioc.InitLogger(cfg.Log)

	a := &app{cfg: cfg}
	shutdownTrace, err := trace.Init(cfg.Trace, os.Stderr)
	if err != nil {
		panic(err)
	}
	a.shutdown = append(a.shutdown, shutdownTrace)
	a.decisions = repo.NewDecisionRepo(ioc.InitDB())
	return a
}

func (a *app) orchestrator() *pipeline.Orchestrator {
	market, trading := ioc.InitExchange(a.cfg)
	source := ioc.InitNewsSource(a.cfg.News, a.cfg.Timeouts, ioc.InitRedis())
	collector := ioc.InitNewsCollector(a.cfg.News, a.cfg.Timeouts, source)

	writer := ioc.InitKafkaWriter()
	if writer != nil {
		a.shutdown = append(a.shutdown, func(context.Context) error { return writer.Close() })
	}
	mon := ioc.InitMonitor(slog.Default(), a.decisions, prometheus.DefaultRegisterer, writer)
	return ioc.InitOrchestrator(a.cfg, market, trading, collector, a.decisions, mon)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}
}

func (a *app) server() *web.Server {
	return web.NewServer(a.cfg.Web.Addr, a.decisions, prometheus.DefaultGatherer)
}

func serveUntilDone(ctx context.Context, s *web.Server) <-chan error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.Start()
	}()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			slog.Error("http server shutdown failed", "error", err)
		}
	}()
	return errc
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run decision cycles on a fixed interval and serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			defer a.close()
			o := a.orchestrator()
			if err := o.RestoreSequence(cmd.Context()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := serveUntilDone(ctx, a.server())
			slog.Info("decision agent started", "mode", a.cfg.App.Mode, "symbol", a.cfg.App.Symbol, "interval", a.cfg.App.Interval)
			schedule.NewScheduler(pipeline.NewTask(o), a.cfg.App.Interval, schedule.WithImmediate()).Start(ctx)
			o.Wait()
			return <-errc
		},
	}
}

func onceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single decision cycle and print the decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			defer a.close()
			o := a.orchestrator()
			if err := o.RestoreSequence(cmd.Context()); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			c, err := o.RunCycle(ctx)
			o.Wait()
			if c != nil && c.Decision != nil {
				if perr := printJSON(cmd, c.Decision); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}
			if c.Status() == pipeline.StatusFailed {
				return c.Err
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the most recent decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			defer a.close()
			records, err := a.decisions.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, lo.Map(records, func(r entity.DecisionRecord, _ int) web.DecisionView {
				return web.NewDecisionView(r)
			}))
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of decisions to print")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API without running decision cycles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := newApp()
			defer a.close()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return <-serveUntilDone(ctx, a.server())
		},
	}
}

func addGlobalFlags(fs *pflag.FlagSet, configFile *string) {
	// --config=./config/xxx.yaml
	fs.StringVar(configFile, "config", "./config/config.dev.yaml", "specify config file")
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	var configFile string
	root := &cobra.Command{
		Use:           "decision-agent",
		Short:         "Multi-agent trading decision pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initViper(configFile)
		},
	}
	addGlobalFlags(root.PersistentFlags(), &configFile)
	root.AddCommand(runCmd(), onceCmd(), historyCmd(), serveCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error("decision-agent exited with error", "error", err)
		os.Exit(1)
	}
}
