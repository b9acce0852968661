package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"TrendSentinel/internal/notifier"
	"TrendSentinel/internal/pipeline"
	"TrendSentinel/internal/scheduler"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}

	root := &cobra.Command{
		Use:          "trendsentinel",
		Short:        "Technical trend analysis for A-share, HK and US symbols",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", cfgPath, "path to the YAML config")

	root.AddCommand(
		newServeCmd(&cfgPath),
		newAnalyzeCmd(&cfgPath),
		newProvidersCmd(&cfgPath),
	)
	return root
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily scheduler, Telegram commands and the metrics endpoint",
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return serve(a)
		},
	}
}

func serve(a *app) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := a.logger

	var sender scheduler.Sender
	if a.telegram != nil {
		sender = a.telegram
	} else {
		log.Warn().Msg("telegram not configured, reports are only logged")
	}

	sched := scheduler.NewScheduler(ctx, a.runner, a.watchlist, a.fund, sender, a.calendar, log)
	if err := sched.RegisterAll(a.cfg.Schedule.DailyCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", srv.Addr).Msg("metrics server")
		}
	}()
	log.Info().Str("addr", srv.Addr).Msg("metrics endpoint listening")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing daily batch now")
		go sched.RunDailyNow()
	}

	log.Info().
		Strs("watchlist", a.watchlist.Symbols()).
		Str("cron", a.cfg.Schedule.DailyCron).
		Msg("TrendSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
	return nil
}

func newAnalyzeCmd(cfgPath *string) *cobra.Command {
	var (
		asJSON bool
		send   bool
	)
	cmd := &cobra.Command{
		Use:   "analyze SYMBOL...",
		Short: "Analyse symbols once and print the reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			batch, err := a.runner.RunBatch(ctx, pipeline.NewWatchlist(args).Symbols())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(batch); err != nil {
					return err
				}
			} else {
				for _, r := range batch.Results {
					fmt.Fprintln(out, notifier.FormatReport(r))
				}
				for _, f := range batch.Failures {
					fmt.Fprint(out, notifier.FormatFailure(notifier.FailureEntry{Symbol: f.Symbol, Error: f.Err.Error(), Providers: f.Providers}))
				}
			}

			if send && a.telegram != nil {
				for _, r := range batch.Results {
					if err := a.telegram.SendWithRetry(ctx, notifier.FormatReport(r), 3); err != nil {
						a.logger.Error().Err(err).Str("symbol", r.Symbol).Msg("send report")
					}
				}
			}
			if len(batch.Results) == 0 {
				return fmt.Errorf("no symbol could be analysed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&send, "send", false, "also push reports to Telegram")
	return cmd
}

func newProvidersCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the provider chain with breaker state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tPROVIDER\tBREAKER\tREQUESTS\tFAILURES")
			for _, s := range a.manager.Status() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n", s.Priority, s.Name, s.State, s.Requests, s.Failures)
			}
			return w.Flush()
		},
	}
}
