package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/integrii/flaggy"

	"github.com/standby-cli/standby"
	"github.com/standby-cli/standby/input"
	"github.com/standby-cli/standby/monitor"

	_ "github.com/standby-cli/standby/input/all"
)

// AppName is the app name
const AppName = "standby"

// AppDesc is the app description
const AppDesc = "wait for, or report on, the loudness of an audio input device"

var version = "unknown"

// Exit codes. User cancellation is not an error, but callers scripting
// around detect mode need to tell the two apart.
const (
	exitSuccess  = 0
	exitUserExit = 1
	exitError    = 2
)

func main() {
	log.SetFlags(0)

	cfg := newZeroConfig()

	if doFlags(&cfg, os.Args[1:]) {
		return
	}

	chk(cfg.Sanitize(), "invalid config")

	// Root Context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	report, err := standby.Run(ctx, &cfg.Config)
	chk(err, "failed to run standby")

	printReport(report, cfg.Channels)

	if report.Outcome == monitor.UserExit {
		os.Exit(exitUserExit)
	}
	os.Exit(exitSuccess)
}

// printReport writes the session result to stdout, after the terminal has
// been restored.
func printReport(report monitor.Report, channels []int) {
	switch report.Mode {
	case monitor.Detect:
		if report.Outcome == monitor.Success {
			for _, i := range report.Tripped {
				fmt.Printf("threshold reached on channel %d\n", channels[i])
			}
		}

	case monitor.Max, monitor.Average:
		for i, db := range report.Levels {
			fmt.Printf("channel %d: %s %.1f dB\n", channels[i], report.Mode, db)
		}
	}
}

func doFlags(cfg *config, args []string) bool {

	parser := flaggy.NewParser(AppName)
	parser.Description = AppDesc
	parser.Version = version

	detectCmd := flaggy.Subcommand{
		Name:        "detect",
		Description: "wait until a channel exceeds the threshold (the default)",
	}

	parser.AttachSubcommand(&detectCmd, 1)

	maxCmd := flaggy.Subcommand{
		Name:        "max",
		Description: "report the maximum level seen per channel",
	}

	parser.AttachSubcommand(&maxCmd, 1)

	avgCmd := flaggy.Subcommand{
		Name:        "avg",
		Description: "report the average level per channel",
	}

	parser.AttachSubcommand(&avgCmd, 1)

	listBackendsCmd := flaggy.Subcommand{
		Name:                 "list-backends",
		ShortName:            "lb",
		Description:          "list all supported backends",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listBackendsCmd, 1)

	listDevicesCmd := flaggy.Subcommand{
		Name:                 "list-devices",
		ShortName:            "ld",
		Description:          "list all devices for a backend",
		AdditionalHelpAppend: "\nuse the full name after the '-'",
	}

	parser.AttachSubcommand(&listDevicesCmd, 1)

	parser.String(&cfg.Backend, "b", "backend", "backend name")
	parser.String(&cfg.Device, "d", "device", "device name")
	parser.Int(&cfg.ThresholdDB, "t", "threshold", "trip threshold in dB [-60, 0]")
	parser.Int(&cfg.MinDisplayDB, "m", "min-db", "lower bound of the drawn meter range")
	parser.String(&cfg.channelList, "ch", "channels", "channel indices to monitor, comma-separated")
	parser.Float64(&cfg.SampleRate, "r", "rate", "sample rate")
	parser.Int(&cfg.SampleSize, "n", "samples", "sample size")
	parser.Float64(&cfg.durationSec, "u", "duration", "bound max/avg sessions to this many seconds (0 for none)")

	chk(parser.ParseArgs(args), "failed to parse arguments")

	switch {
	case detectCmd.Used:
		cfg.Mode = monitor.Detect

	case maxCmd.Used:
		cfg.Mode = monitor.Max

	case avgCmd.Used:
		cfg.Mode = monitor.Average

	case listBackendsCmd.Used:
		for _, backend := range input.Backends {
			fmt.Printf("- %s\n", backend.Name)
		}

		return true

	case listDevicesCmd.Used:
		backendName := cfg.Backend
		if backendName == "" {
			backendName = input.DefaultBackend()
		}

		backend, err := input.InitBackend(backendName)
		chk(err, "failed to init backend")
		defer backend.Close()

		devices, err := backend.Devices()
		chk(err, "failed to get devices")

		// We don't really need the default device to be indicated.
		defaultDevice, _ := backend.DefaultDevice()

		fmt.Printf("all devices for %q backend. '*' marks default\n", backendName)

		for idx := range devices {
			star := ' '
			if defaultDevice != nil && devices[idx].String() == defaultDevice.String() {
				star = '*'
			}

			fmt.Printf("- %v %c\n", devices[idx], star)
		}

		return true
	}

	return false
}

func chk(err error, wrap string) {
	if err != nil {
		log.Println(wrap+": ", err)
		os.Exit(exitError)
	}
}
