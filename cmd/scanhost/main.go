// Command scanhost runs the keysense scan pipeline on a Linux board: matrix
// pins through periph GPIO and Hall sensors through an IIO ADC. Changes are
// logged instead of sent to a host.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/host/v3"

	"keysense/core"
	"keysense/drivers/periphgpio"
)

var (
	configPath = flag.String("config", "", "JSON board configuration (default: reference board)")
	iioName    = flag.String("iio", "", "IIO ADC device name for the Hall channels")
	colNames   = flag.String("cols", "", "Comma-separated periph pin names for the columns, e.g. GPIO17,GPIO27")
	rowNames   = flag.String("rows", "", "Comma-separated periph pin names for the rows")
	adcBits    = flag.Uint("bits", 12, "ADC resolution the thresholds are written for")
	statsEvery = flag.Duration("stats", 10*time.Second, "Interval between scan statistics")
	verbose    = flag.Bool("verbose", false, "Enable development logging")
)

func main() {
	flag.Parse()

	var log *zap.Logger
	var err error
	if *verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log.Sugar()); err != nil {
		log.Sugar().Errorw("exiting", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*core.Config, error) {
	if path == "" {
		return core.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := core.LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func run(ctx context.Context, log *zap.SugaredLogger) error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph host init: %w", err)
	}
	core.SetGPIODriver(periphgpio.NewDriver())

	if len(cfg.HallChannels) > 0 {
		if *iioName == "" {
			log.Warnw("no -iio device, Hall sensors disabled", "channels", len(cfg.HallChannels))
			cfg.HallChannels = nil
		} else {
			adc, err := iioADC(*iioName, cfg, *adcBits)
			if err != nil {
				return err
			}
			core.SetADCDriver(adc)
		}
	}

	period := time.Duration(cfg.ScanPeriodUS) * time.Microsecond
	scanner, err := buildScanner(cfg, *colNames, *rowNames, logReporter{log: log.Named("scan"), period: period})
	if err != nil {
		return fmt.Errorf("build scanner: %w", err)
	}
	cols, rows := 0, 0
	if m := scanner.Matrix(); m != nil {
		cols, rows = m.Cols(), m.Rows()
	}
	log.Infow("scanning",
		"board", cfg.Name,
		"cols", cols,
		"rows", rows,
		"sensors", len(cfg.HallChannels),
		"period", period)

	return loop(ctx, scanner, cfg, log)
}

// buildScanner uses the configured pin numbers unless pin names are given,
// in which case the matrix is built from the periph registry by name.
func buildScanner(cfg *core.Config, cols, rows string, r core.Reporter) (*core.Scanner, error) {
	if cols == "" && rows == "" {
		return core.BuildScanner(cfg, nil, r)
	}
	strobes, senses, err := periphgpio.MatrixPinsByName(splitNames(cols), splitNames(rows))
	if err != nil {
		return nil, err
	}
	cfg.Cols, cfg.Rows = nil, nil
	return core.BuildScannerWithPins(cfg, strobes, senses, nil, r)
}

func splitNames(list string) []string {
	var names []string
	for _, n := range strings.Split(list, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// iioADC maps each configured channel number to the IIO channel of the same
// number.
func iioADC(name string, cfg *core.Config, bits uint) (*periphgpio.ADC, error) {
	dev, err := periphgpio.FindIIODevice(name)
	if err != nil {
		return nil, err
	}
	var pins []analog.PinADC
	for _, ch := range cfg.HallChannels {
		for len(pins) <= int(ch) {
			pins = append(pins, nil)
		}
		if pins[ch], err = periphgpio.NewIIOPin(dev, int(ch), bits); err != nil {
			return nil, err
		}
	}
	adc := periphgpio.NewADC(pins...)
	adc.Bits = bits
	return adc, nil
}

// loop drives the core scheduler from the wall clock the way the firmware
// main loop drives it from the hardware timer.
func loop(ctx context.Context, scanner *core.Scanner, cfg *core.Config, log *zap.SugaredLogger) error {
	start := time.Now()
	clock := func() uint32 { return core.TimerFromUS(uint32(time.Since(start).Microseconds())) }

	core.SetTime(clock())
	period := core.TimerFromUS(cfg.ScanPeriodUS)
	timer := scanner.ScanTimer(core.GetTime()+period, period, func(err error) {
		log.Warnw("scan cycle failed", "error", err)
	})
	core.ScheduleTimer(timer)
	defer core.CancelTimer(timer)

	tick := time.NewTicker(time.Duration(cfg.ScanPeriodUS) * time.Microsecond / 2)
	defer tick.Stop()
	stats := time.NewTicker(*statsEvery)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Infow("stopped", "cycles", core.ScanCycles(), "overruns", core.ScanOverruns())
			return nil
		case <-stats.C:
			log.Infow("stats", "cycles", core.ScanCycles(), "overruns", core.ScanOverruns())
		case <-tick.C:
			core.SetTime(clock())
			core.TimerDispatch(core.GetTime())
		}
	}
}
