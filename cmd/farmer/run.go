package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"OdysseyFarmer/internal/action"
	"OdysseyFarmer/internal/api"
	"OdysseyFarmer/internal/balance"
	"OdysseyFarmer/internal/chain"
	"OdysseyFarmer/internal/journal"
	"OdysseyFarmer/internal/keystore"
	"OdysseyFarmer/internal/model"
	"OdysseyFarmer/internal/notifier"
	"OdysseyFarmer/internal/recorder"
	"OdysseyFarmer/internal/scheduler"
)

var startNow bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Serve the control API and (optionally) start the worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	runCmd.Flags().BoolVar(&startNow, "start", false, "start the worker immediately with the configured run defaults")
}

func chainOptions() chain.Options {
	return chain.Options{
		CallTimeout:    cfg.Network.CallTimeout,
		Retries:        cfg.Network.Retries,
		RetryDelay:     cfg.Network.RetryDelay,
		PollInterval:   cfg.Network.PollInterval,
		ConfirmTimeout: cfg.Network.ConfirmTimeout,
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Msg("farmer starting")

	primary, err := chain.Dial(ctx, cfg.Network.PrimaryRPC, chainOptions())
	if err != nil {
		return err
	}
	var secondary chain.Client
	if len(cfg.Network.SecondaryRPC) > 0 {
		if secondary, err = chain.Dial(ctx, cfg.Network.SecondaryRPC, chainOptions()); err != nil {
			logger.Warn().Err(err).Msg("secondary network unavailable, bridge will fail")
			secondary = nil
		}
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	j := journal.New(cfg.Worker.LogCapacity, rec, logger)
	oracle := balance.NewOracle(primary, cfg.Worker.BalanceRefresh, cfg.Network.CallTimeout, logger)
	oracle.OnSnapshot(func(readings []model.BalanceReading) {
		if err := rec.RecordBalances(readings); err != nil {
			logger.Error().Err(err).Msg("record balances")
		}
	})

	defaults := cfg.Run
	ctrl := scheduler.New(primary, secondary, keystore.FileSource(cfg.Worker.KeysFile), oracle, action.Default(), j,
		scheduler.Options{
			IdleWait:        cfg.Worker.IdleWait,
			ProbeTimeout:    cfg.Network.CallTimeout,
			ExpectedChainID: cfg.Network.ExpectedChainID,
			Defaults:        &defaults,
		}, logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TelegramEnabled() {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		j.OnAppend(tn.NotifyEntry)
		g.Go(func() error { tn.Run(gctx); return nil })
		g.Go(func() error { tn.StartPolling(gctx, ctrl.HandleCommand); return nil })
		logger.Info().Msg("telegram polling started")
	}

	h := api.NewHandler(ctrl, defaults, logger)
	g.Go(func() error { return api.Serve(gctx, cfg.HTTP.Addr, h.Router(), logger) })

	if startNow || cfg.Worker.AutoStart {
		if err := ctrl.Start(ctx, defaults); err != nil {
			logger.Warn().Err(err).Msg("worker did not start")
		}
	}

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logger.Warn().Err(err).Msg("sd_notify ready")
	} else if ok {
		logger.Debug().Msg("systemd notified")
	}
	logger.Info().Str("http", cfg.HTTP.Addr).Msg("farmer is running, press Ctrl+C to stop")

	<-gctx.Done()
	logger.Info().Msg("shutdown signal received, stopping")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	ctrl.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := ctrl.Wait(waitCtx); err != nil {
		logger.Warn().Err(err).Msg("in-flight action did not finish before shutdown")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("farmer stopped")
	return nil
}
