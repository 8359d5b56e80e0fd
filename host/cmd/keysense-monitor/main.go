// Command keysense-monitor connects to a keysense board, decodes its key and
// sensor reports and publishes them to MQTT or the log.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"keysense/host/monitor"
	"keysense/host/serial"
)

var (
	configPath = flag.String("config", "keysense-monitor.yaml", "YAML configuration file")
	device     = flag.String("device", "", "Serial device path (overrides config)")
	broker     = flag.String("broker", "", "MQTT broker URL (overrides config)")
	shell      = flag.Bool("shell", false, "Interactive command shell instead of monitoring")
	verbose    = flag.Bool("verbose", false, "Enable development logging")
)

func main() {
	flag.Parse()

	log, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log.Sugar()); err != nil {
		log.Sugar().Errorw("exiting", "error", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(log *zap.SugaredLogger) (err error) {
	cfg, err := monitor.Load(*configPath)
	if err != nil {
		return err
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}

	port, err := serial.Open(&cfg.Serial)
	if err != nil {
		return err
	}
	log.Infow("connecting", "device", cfg.Serial.Device)

	// Connect closes port on failure
	client, err := monitor.Connect(port, log.Named("client"))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Combine(err, client.Close()) }()

	if *shell {
		return runShell(client)
	}

	var pub monitor.Publisher = monitor.LogPublisher{Log: log.Named("report")}
	if cfg.MQTT.Broker != "" {
		mp, err := monitor.NewMQTTPublisher(cfg.MQTT)
		if err != nil {
			return err
		}
		log.Infow("publishing", "broker", cfg.MQTT.Broker, "prefix", cfg.MQTT.TopicPrefix)
		pub = mp
	}
	defer func() { err = multierr.Combine(err, pub.Close()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := monitor.New(client, pub, cfg, log)
	setupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = m.Setup(setupCtx)
	if err == nil {
		err = m.Refresh(setupCtx)
	}
	cancel()
	if err != nil {
		return err
	}

	if err := m.Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutting down")
	return nil
}

func runShell(client *monitor.Client) error {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	in := bufio.NewScanner(os.Stdin)

	go func() {
		for m := range client.Messages() {
			fmt.Printf("< %s %s\n", m.Name, formatArgs(m))
		}
	}()

	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		parts := strings.Fields(in.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "quit", "exit", "q":
			return nil
		case "help", "?":
			printHelp(client.Dictionary())
		case "dict":
			printDictionary(client.Dictionary())
		case "raw":
			fmt.Printf("%s\n", client.RawDictionary())
		default:
			args, err := parseArgs(parts[1:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			if err := client.Send(parts[0], args...); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
	return in.Err()
}

func parseArgs(fields []string) ([]uint32, error) {
	args := make([]uint32, 0, len(fields))
	for _, f := range fields {
		// Accept both "col=3" and "3"
		if _, v, ok := strings.Cut(f, "="); ok {
			f = v
		}
		n, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", f, err)
		}
		args = append(args, uint32(n))
	}
	return args, nil
}

func formatArgs(m monitor.Message) string {
	names := make([]string, 0, len(m.Args))
	for name := range m.Args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%d", name, m.Args[name])
	}
	if m.Data != nil {
		fmt.Fprintf(&b, " data=%q", m.Data)
	}
	return b.String()
}

func printHelp(d *monitor.Dictionary) {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help           - Show this help message")
	fmt.Println("  dict           - Print dictionary summary")
	fmt.Println("  raw            - Print raw dictionary data")
	fmt.Println("  quit/exit/q    - Exit the program")
	fmt.Println("\nBoard commands (arguments as name=value or value):")
	for _, name := range d.CommandNames() {
		f, _ := d.Command(name)
		fmt.Printf("  %s\n", f.Signature)
	}
	fmt.Println()
}

func printDictionary(d *monitor.Dictionary) {
	fmt.Printf("Version: %s\n", d.Version)
	fmt.Printf("Build: %s\n", d.BuildVersions)

	fmt.Println("\nConfig:")
	keys := make([]string, 0, len(d.Config))
	for k := range d.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %s\n", k, d.Config[k])
	}

	fmt.Printf("\nCommands (%d), responses (%d)\n", len(d.Commands), len(d.Responses))
	for name, values := range d.Enumerations {
		fmt.Printf("Enumeration %s: %d values\n", name, len(values))
	}
	fmt.Println()
}
