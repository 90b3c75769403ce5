// Command pipower watches the battery and USB supply of a Raspberry Pi fed
// from a LiPo charger, shows the charge state on a two-colour LED and shuts
// the system down on a held button press or a flat battery.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"pipower-go/services/button"
	"pipower-go/services/config"
	"pipower-go/services/hal"
	"pipower-go/services/led"
	"pipower-go/services/monitor"
	"pipower-go/services/power"
	"pipower-go/services/shutdown"
	"pipower-go/x/timex"
)

func main() {
	os.Exit(run())
}

func run() int {
	safe := pflag.BoolP("safe", "s", false, "wait an extra 2 minutes before any shutdown")
	pflag.Parse()

	cfg, err := config.Load(config.PathFromEnv())
	if err == nil {
		err = config.Validate(&cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipower: configuration: %v\n", err)
		return 2
	}

	log := newLogger(cfg.LogLevel).With("run_id", uuid.NewString())
	log.Info("starting", "board", cfg.Board, "safe_mode", *safe)
	if *safe {
		log.Info("safe mode: low battery and user shutdown wait 2 minutes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case sig := <-sigs:
			log.Info("quit", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	hw, err := hal.OpenPeriph(ctx, cfg, log.With("svc", "hal"))
	if err != nil {
		log.Error("hardware setup failed", "err", err)
		return 1
	}

	clock := timex.System{}
	interval := time.Duration(cfg.Poll.IntervalMs) * time.Millisecond
	model := power.NewModel(cfg.Divider, cfg.Ranges)

	coord := shutdown.New(
		shutdown.DefaultPolicy(*safe, cfg.System.AuditTag),
		shutdown.NewSystem(cfg.System, log.With("svc", "system")),
		hw, clock, log.With("svc", "shutdown"))

	btn := button.New(hw, coord, clock, cfg.Button, log.With("svc", "button"))
	go btn.Run(ctx, hw.ButtonEdges())

	loop := monitor.New(monitor.Deps{
		Sampler:     power.NewSampler(hw, model, cfg.ADC),
		Classifier:  power.Classifier{Model: model, USBThreshold: cfg.Poll.USBThresholdV},
		LED:         led.NewSignaler(hw, clock, log.With("svc", "led")),
		Shutdown:    coord,
		Clock:       clock,
		Log:         log.With("svc", "monitor"),
		Interval:    interval,
		MinFraction: cfg.Poll.MinBatteryFraction,
	})
	log.Info("polling", "interval", interval, "conversion_factor", model.ConversionFactor())
	loop.Run(ctx)

	finish(coord, hw, log)
	if n := hw.ISRDrops(); n > 0 {
		log.Debug("button edges dropped", "count", n)
	}
	return 0
}

type completer interface{ Completed() bool }

type releaser interface{ ReleaseAll() error }

// finish runs after the poll loop has returned, whether it was stopped by a
// signal or by the shutdown sequence. Releasing is idempotent, so the lines
// are always released here.
func finish(coord completer, hw releaser, log *slog.Logger) {
	if coord.Completed() {
		log.Info("shutdown sequence complete")
	}
	if err := hw.ReleaseAll(); err != nil {
		log.Warn("release lines", "err", err)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
