// terminal is the driver console. It unlocks with the shared PIN, then
// publishes the vehicle's position or offline reason to the state store.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ukydev/campus-rath/internal/auth"
	"github.com/ukydev/campus-rath/internal/broadcast"
	"github.com/ukydev/campus-rath/internal/config"
	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/location"
	"github.com/ukydev/campus-rath/internal/session"
	"github.com/ukydev/campus-rath/internal/terminal"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var envFile string
	var locationFile string

	flagSet := pflag.NewFlagSet("terminal", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "load configuration from this .env file")
	flagSet.StringVar(&locationFile, "location-file", "", "read the vehicle position from this JSON file (overrides LOCATION_FILE)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	var cfg *config.Config
	if envFile != "" {
		cfg = config.Load(envFile)
	} else {
		cfg = config.Load()
	}
	if locationFile != "" {
		cfg.LocationFile = locationFile
	}
	cfg.ConfigureLogging()
	// The TUI owns the screen; only the file hook, if any, should see logs.
	log.SetOutput(io.Discard)

	if cfg.StoreBackend == config.BackendMemory {
		log.Warn("In-memory store: updates are only visible to this terminal")
	}

	backend, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	publisher, closePublisher, err := broadcast.Open(cfg)
	if err != nil {
		log.WithError(err).Warn("MQTT unavailable, continuing without broadcast")
		publisher = nil
	}
	defer closePublisher()

	runner := newRunner(cfg, backend.Store, publisher)
	provider := location.Select(cfg.LocationFile, cfg.DriverLocation)

	authService, err := auth.NewService(cfg.SessionSecret)
	if err != nil {
		return err
	}
	model := terminal.NewModel(runner, provider, authService.NewSession(), cfg.PollInterval)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

func newRunner(cfg *config.Config, store db.VehicleStateStore, publisher broadcast.Publisher) *session.Runner {
	gate := auth.NewPINGate(cfg.AdminPIN, cfg.AdminPINHash)
	return session.NewRunner(session.NewMachine(gate), store, publisher, cfg.DefaultLocation)
}
