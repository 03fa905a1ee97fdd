// Package logger builds the agent's zap logger: a "[LEVEL] [subsystem] message" console
// sink on stderr and an optional rotating JSON file.
package logger

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/wnxd/microhook/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel accepts TRACE, DEBUG, INFO, WARN and ERROR in any case. Trace has no zap
// counterpart and maps to debug.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.DebugLevel, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// New returns the logger and a function that flushes and closes its sinks.
func New(cfg config.Config) (*zap.Logger, func(), error) {
	return build(cfg, zapcore.Lock(os.Stderr))
}

func build(cfg config.Config, console zapcore.WriteSyncer) (*zap.Logger, func(), error) {
	level, err := ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig(cfg.LogColor)), console, level),
	}
	var file *lumberjack.Logger
	if cfg.LogFile != "" {
		file = &lumberjack.Logger{
			Filename:  cfg.LogFile,
			MaxSize:   cfg.LogMaxSize,
			LocalTime: true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(file), level))
	}
	log := zap.New(zapcore.NewTee(cores...))
	closer := func() {
		_ = log.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return log, closer, nil
}

func consoleEncoderConfig(colored bool) zapcore.EncoderConfig {
	levels := map[zapcore.Level]*color.Color{
		zapcore.DebugLevel: color.New(color.FgBlue),
		zapcore.InfoLevel:  color.New(color.FgGreen),
		zapcore.WarnLevel:  color.New(color.FgYellow),
		zapcore.ErrorLevel: color.New(color.FgRed),
	}
	for _, c := range levels {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return zapcore.EncoderConfig{
		LevelKey:         "level",
		NameKey:          "logger",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeLevel: func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			s := "[" + l.CapitalString() + "]"
			if c, ok := levels[l]; ok {
				s = c.Sprint(s)
			}
			enc.AppendString(s)
		},
		EncodeName: func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
