package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/vigiacam/vigia/pkg/colorclass"
	"github.com/vigiacam/vigia/server"
	"github.com/vigiacam/vigia/server/configdb"
	"github.com/vigiacam/vigia/server/monitor"
	"github.com/vigiacam/vigia/server/recorddb"
)

func main() {
	// This is purely for documentation of the cmd-line args
	nominalDefaultDB := "$HOME/vigia/config.sqlite"
	nominalDefaultRecords := "$HOME/vigia/records.sqlite"

	parser := argparse.NewParser("vigia", "Vehicle traffic monitor")
	configFile := parser.String("c", "config", &argparse.Options{Help: "Configuration database file", Default: nominalDefaultDB})
	recordsFile := parser.String("", "records", &argparse.Options{Help: "Record database file", Default: nominalDefaultRecords})
	framesDir := parser.String("f", "frames", &argparse.Options{Help: "Directory of JPEG frames (with optional detection sidecars)", Required: true})
	fps := parser.Float("", "fps", &argparse.Options{Help: "Frame rate of the source video", Default: 25.0})
	linePosition := parser.Float("", "line", &argparse.Options{Help: "Counting line position as a fraction of frame height (overrides config)", Default: 0.0})
	pixelsPerMeter := parser.Float("", "ppm", &argparse.Options{Help: "Pixels per meter for speed estimation (overrides config)", Default: 0.0})
	watchColor := parser.String("", "watch", &argparse.Options{Help: "Vehicle color that raises an alert (overrides config)", Default: ""})
	port := parser.String("p", "port", &argparse.Options{Help: "HTTP listen address", Default: ":8080"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	home, _ := os.UserHomeDir()
	if home == "" {
		home = "/var/lib"
	}
	if *configFile == nominalDefaultDB {
		*configFile = filepath.Join(home, "vigia", "config.sqlite")
	}
	if *recordsFile == nominalDefaultRecords {
		*recordsFile = filepath.Join(home, "vigia", "records.sqlite")
	}

	configDB, err := configdb.NewConfigDB(logger, *configFile)
	if err != nil {
		logger.Errorf("Failed to open config database: %v", err)
		os.Exit(1)
	}
	settings, err := configDB.LoadSettings()
	if err != nil {
		logger.Errorf("Failed to load settings: %v", err)
		os.Exit(1)
	}
	if *linePosition != 0 {
		settings.LinePosition = *linePosition
	}
	if *pixelsPerMeter != 0 {
		settings.PixelsPerMeter = *pixelsPerMeter
	}
	if *watchColor != "" {
		settings.WatchColor = *watchColor
	}

	recordDB, err := recorddb.Open(logger, *recordsFile)
	if err != nil {
		logger.Errorf("Failed to open record database: %v", err)
		os.Exit(1)
	}

	source, err := monitor.NewDirectorySource(*framesDir, *fps)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	width, height, err := source.Dimensions()
	if err != nil {
		logger.Errorf("Failed to probe frame dimensions: %v", err)
		os.Exit(1)
	}
	logger.Infof("Source: %v frames of %vx%v at %v fps", source.NumFrames(), width, height, *fps)

	mon, err := monitor.NewMonitor(logger, source, monitor.Options{
		FrameWidth:     width,
		FrameHeight:    height,
		FPS:            *fps,
		LinePosition:   settings.LinePosition,
		PixelsPerMeter: settings.PixelsPerMeter,
		WatchColor:     colorclass.Color(settings.WatchColor),
		StartPaused:    true,
	})
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(logger, mon, configDB, recordDB)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	srv.StartNotifier(settings.TelegramBotToken, settings.TelegramChatID)
	srv.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	mon.Unpause()

	err = srv.ListenHTTP(*port)
	logger.Infof("ListenHTTP returned: %v", err)
}
