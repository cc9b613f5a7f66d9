// Package cmd is the command line entry point of the console.
package cmd

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/dkhoanguyen/dvrk-console/internal/env"
	"github.com/dkhoanguyen/dvrk-console/internal/logging"
	"github.com/dkhoanguyen/dvrk-console/pkg/bridge"
	"github.com/dkhoanguyen/dvrk-console/pkg/supervisor"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	defaultPeriodSeconds = 0.02
	rosRemapSeparator    = ":="
)

// ValidationError reports command line input that was rejected before
// anything was constructed.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Err: errors.Errorf(format, args...)}
}

type runFunc func(ctx context.Context, opts supervisor.Options) error

// NewRootCmd builds the console command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(runConsole)
}

func newRootCmd(run runFunc) *cobra.Command {
	var (
		configPath string
		period     float64
		namespace  string
		ioConfigs  []string
		textOnly   bool
		timeStamp  bool
	)

	rootCmd := &cobra.Command{
		Use:   "dvrk-console",
		Short: "Run the dVRK console with its arms, front end and bus bridge",
		Long: `Run the dVRK console.

The console configuration lists the arms and teleoperation pairs. Recognized
arms are specialized, the console exposes everything on the bus namespace and
the process runs until 'q' is pressed or the window is closed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return invalid("unexpected arguments: %s", strings.Join(args, " "))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return invalid("required flag \"json-config\" not set")
			}
			rosPeriod, err := periodFromSeconds(period)
			if err != nil {
				return err
			}
			if err := bridge.ValidateNamespace(namespace); err != nil {
				return &ValidationError{Err: err}
			}
			return run(cmd.Context(), supervisor.Options{
				ConfigPath: configPath,
				Period:     rosPeriod,
				Namespace:  namespace,
				IOConfigs:  ioConfigs,
				TextOnly:   textOnly,
				TimeStamp:  timeStamp,
			})
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "json-config", "j", "", "json configuration file")
	flags.Float64VarP(&period, "ros-period", "p", defaultPeriodSeconds, "period in seconds to read all arms/teleop components and publish")
	flags.StringVarP(&namespace, "ros-namespace", "n", bridge.DefaultNamespace, "ROS namespace to prefix all topics, must have start and end \"/\"")
	flags.StringArrayVarP(&ioConfigs, "ros-io-config", "i", nil, "json config file to configure ROS bridges to collect low level data (IO)")
	flags.BoolVarP(&textOnly, "text-only", "t", false, "text only interface, do not create Qt widgets")
	flags.BoolVarP(&timeStamp, "time-stamp", "s", false, "add ROS timestamps to all published messages")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &ValidationError{Err: err}
	})
	return rootCmd
}

// periodFromSeconds converts the -p value, rejecting anything that is not
// a positive duration of at least one nanosecond.
func periodFromSeconds(seconds float64) (time.Duration, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0, invalid("ros-period must be a positive number of seconds, got %v", seconds)
	}
	nanos := math.Round(seconds * float64(time.Second))
	if nanos < 1 || nanos >= math.MaxInt64 {
		return 0, invalid("ros-period out of range, got %v", seconds)
	}
	return time.Duration(nanos), nil
}

// StripROSArgs removes ROS remapping arguments such as name:=value.
func StripROSArgs(args []string) []string {
	stripped := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.Contains(arg, rosRemapSeparator) {
			continue
		}
		stripped = append(stripped, arg)
	}
	return stripped
}

// Execute runs the console with the process arguments and returns the exit
// code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, os.Args[1:], runConsole, os.Stderr)
}

func execute(ctx context.Context, args []string, run runFunc, stderr io.Writer) int {
	rootCmd := newRootCmd(run)
	rootCmd.SetArgs(StripROSArgs(args))
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		fmt.Fprintln(stderr, rootCmd.UsageString())
	}
	fmt.Fprintln(stderr, "Error:", err)
	return 1
}

func runConsole(ctx context.Context, opts supervisor.Options) error {
	config, err := env.LoadConfig(ctx)
	if err != nil {
		return err
	}
	logger, closer, err := logging.Make(config)
	if err != nil {
		return err
	}
	var once sync.Once
	closeLogger := func() error {
		var err error
		once.Do(func() { err = closer() })
		return err
	}
	defer closeLogger()

	logger.Info("Options provided",
		zap.String("json-config", opts.ConfigPath),
		zap.Duration("ros-period", opts.Period),
		zap.String("ros-namespace", opts.Namespace),
		zap.Strings("ros-io-config", opts.IOConfigs),
		zap.Bool("text-only", opts.TextOnly),
		zap.Bool("time-stamp", opts.TimeStamp))

	return supervisor.Run(ctx, opts, supervisor.Dependencies{
		Env:          config,
		Logger:       logger,
		LoggerCloser: closeLogger,
		Input:        os.Stdin,
		Output:       os.Stdout,
	})
}
