package logging

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dkhoanguyen/dvrk-console/internal/env"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Make builds the process logger. Records go to stderr and, when a logging
// path is configured, to a timestamped file inside it. The returned closer
// flushes the logger and releases the file.
func Make(config *env.Config) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(config.LoggingLevel)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid logging level %q", config.LoggingLevel)
	}

	logWriter := zapcore.Lock(os.Stderr)
	var logfile *os.File

	if config.LoggingPath != "" {
		// Create log folder if it doesn't exist
		if err := os.MkdirAll(config.LoggingPath, os.ModePerm); err != nil {
			return nil, nil, errors.Wrap(err, "creating logging path")
		}
		fileName := time.Now().Format("2006-01-02-15-04-05") + ".log"
		logfile, err = os.OpenFile(filepath.Join(config.LoggingPath, fileName), os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening log file")
		}
		logWriter = zapcore.NewMultiWriteSyncer(logWriter, logfile)
	}

	logger := New(logWriter, level)
	closer := func() error {
		// Syncing stderr fails on some terminals; only the file matters here.
		_ = logger.Sync()
		if logfile != nil {
			return logfile.Close()
		}
		return nil
	}
	return logger, closer, nil
}

// New builds a console-encoded logger on the given sink.
func New(sink zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "@timestamp"
	encoderCfg.EncodeTime = zapcore.EpochMillisTimeEncoder

	encoder := zapcore.NewConsoleEncoder(encoderCfg)
	logCore := zapcore.NewCore(encoder, sink, level)
	return zap.New(logCore, zap.AddCaller())
}
