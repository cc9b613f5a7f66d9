// Package supervisor bootstraps the console process: it decides which
// components to build from the configuration, registers and wires them in
// dependency order and hands the result to the lifecycle controller.
package supervisor

import (
	"context"
	"io"
	"time"

	"github.com/dkhoanguyen/dvrk-console/internal/env"
	"github.com/dkhoanguyen/dvrk-console/pkg/arm"
	"github.com/dkhoanguyen/dvrk-console/pkg/bridge"
	"github.com/dkhoanguyen/dvrk-console/pkg/component"
	"github.com/dkhoanguyen/dvrk-console/pkg/config"
	"github.com/dkhoanguyen/dvrk-console/pkg/console"
	"github.com/dkhoanguyen/dvrk-console/pkg/db"
	"github.com/dkhoanguyen/dvrk-console/pkg/frontend"
	"github.com/dkhoanguyen/dvrk-console/pkg/handlers"
	"github.com/dkhoanguyen/dvrk-console/pkg/lifecycle"
	"github.com/dkhoanguyen/dvrk-console/pkg/metrics"
	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	mainConfigDescription = "console JSON configuration file"
	ioConfigDescription   = "ROS IO JSON configuration file"
)

// Options are the orchestration decisions taken on the command line.
type Options struct {
	ConfigPath string
	Period     time.Duration
	Namespace  string
	IOConfigs  []string
	TextOnly   bool
	TimeStamp  bool
}

type Dependencies struct {
	Env    *env.Config
	Logger *zap.Logger
	// LoggerCloser is released last during cleanup.
	LoggerCloser func() error

	Input  io.Reader
	Output io.Writer
	// Screen hosts the interactive front end; nil uses the terminal.
	Screen tcell.Screen
	// Publisher overrides the bus selected from the environment.
	Publisher bridge.Publisher
	Observers []lifecycle.Observer
}

// Process is everything the bootstrap built, ready to be run.
type Process struct {
	Registry   *component.Registry
	Arms       []component.Component
	Console    *console.Console
	Frontend   frontend.Frontend
	Bridge     *bridge.Bridge
	Metrics    *metrics.Metrics
	Journal    *db.Database
	Controller *lifecycle.Controller
}

// Run bootstraps the process and drives its full lifecycle.
func Run(ctx context.Context, opts Options, deps Dependencies) error {
	process, err := Bootstrap(opts, deps)
	if err != nil {
		return err
	}
	return process.Controller.Run(ctx)
}

// Bootstrap builds and wires every component without starting any. The main
// configuration is checked and parsed before anything is registered. On
// error, the shared resources acquired so far are released.
func Bootstrap(opts Options, deps Dependencies) (process *Process, err error) {
	logger := deps.Logger

	if err := config.RequireFile(mainConfigDescription, opts.ConfigPath, logger); err != nil {
		return nil, err
	}
	doc, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	var releases []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(releases) - 1; i >= 0; i-- {
			err = multierr.Append(err, releases[i]())
		}
	}()

	process = &Process{
		Registry: component.NewRegistry(logger),
		Metrics:  metrics.New(),
	}
	registry := process.Registry
	registry.OnTransition(process.Metrics.ComponentTransition)

	// specialized arms
	process.Arms, err = arm.DefaultFactory(logger).Build(doc.Arms, registry)
	if err != nil {
		return nil, err
	}

	// console
	process.Console = console.New(logger)
	if err = process.Console.Configure(opts.ConfigPath); err != nil {
		return nil, err
	}
	if err = registry.Register(process.Console); err != nil {
		return nil, err
	}
	if err = process.Console.Connect(); err != nil {
		return nil, errors.Wrap(err, "connecting console")
	}

	// front end
	process.Frontend, err = makeFrontend(opts, deps, process)
	if err != nil {
		return nil, err
	}

	// bus bridge
	publisher, err := makePublisher(deps)
	if err != nil {
		return nil, err
	}
	releases = append(releases, publisher.Close)

	process.Bridge, err = bridge.New(bridge.DefaultName, opts.Period, opts.Namespace,
		process.Console, opts.TimeStamp, publisher, logger)
	if err != nil {
		return nil, err
	}
	process.Bridge.OnPublish(process.Metrics.Published)
	if err = registry.Register(process.Bridge); err != nil {
		return nil, err
	}
	for _, path := range opts.IOConfigs {
		if err = config.RequireFile(ioConfigDescription, path, logger); err != nil {
			return nil, err
		}
		if err = process.Bridge.Configure(path); err != nil {
			return nil, err
		}
	}
	if err = process.Bridge.Connect(); err != nil {
		return nil, err
	}

	if deps.Env.HealthAddr != "" {
		router := handlers.NewRouter(registry, process.Console, process.Metrics.Registry)
		if err = registry.Register(handlers.NewServer(deps.Env.HealthAddr, router, logger)); err != nil {
			return nil, err
		}
	}

	if deps.Env.JournalPath != "" {
		process.Journal, err = db.MakeDatabase(deps.Env.JournalPath, logger)
		if err != nil {
			return nil, err
		}
		releases = append(releases, process.Journal.Close)
	}

	process.Controller = lifecycle.NewController(registry, process.Frontend, deps.Env.BarrierTimeout, logger)
	process.Controller.AddObserver(process.Metrics)
	if process.Journal != nil {
		process.Controller.AddObserver(process.Journal)
	}
	for _, observer := range deps.Observers {
		process.Controller.AddObserver(observer)
	}
	if deps.LoggerCloser != nil {
		process.Controller.OnCleanup(deps.LoggerCloser)
	}
	for _, release := range releases {
		process.Controller.OnCleanup(release)
	}

	logger.Info("Bootstrap complete", zap.Strings("components", registry.Names()))
	return process, nil
}

// makeFrontend builds the GUI in interactive mode and the quit-key loop
// otherwise. The GUI registers itself; the text loop is not a component.
func makeFrontend(opts Options, deps Dependencies, process *Process) (frontend.Frontend, error) {
	if opts.TextOnly {
		text := frontend.NewText(deps.Input, deps.Output, deps.Logger)
		if err := text.Configure(process.Console); err != nil {
			return nil, err
		}
		return text, text.Connect()
	}

	gui := frontend.NewGUI(deps.Logger, deps.Screen)
	if err := gui.Configure(process.Console); err != nil {
		return nil, err
	}
	if err := process.Registry.Register(gui); err != nil {
		return nil, err
	}
	return gui, gui.Connect()
}

func makePublisher(deps Dependencies) (bridge.Publisher, error) {
	if deps.Publisher != nil {
		return deps.Publisher, nil
	}
	if deps.Env.NatsURL != "" {
		return bridge.NewNATSPublisher(deps.Env.NatsURL, bridge.DefaultName, deps.Logger)
	}
	return bridge.NewLogPublisher(deps.Logger), nil
}
