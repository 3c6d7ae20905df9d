package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"codepanel/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// lowestLevel maps configured level names to the lowest level logged.
var lowestLevel = map[string]zapcore.Level{
	"debug":  zapcore.DebugLevel,
	"normal": zapcore.InfoLevel,
}

// Prepare returns our standard logger - configured zap logger for use by the
// program. Console receives errors on stderr and everything else on stdout.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	consoleCore := zapcore.NewNopCore()
	if lowest, ok := lowestLevel[conf.ConsoleLogger.Level]; ok {
		consoleCore = zapcore.NewTee(
			zapcore.NewCore(consoleEncoder(os.Stdout, false), zapcore.Lock(os.Stdout),
				zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
					return lowest <= lvl && lvl < zapcore.ErrorLevel
				})),
			zapcore.NewCore(consoleEncoder(os.Stderr, true), zapcore.Lock(os.Stderr),
				zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
					return lvl >= zapcore.ErrorLevel
				})),
		)
	}

	fileCore := zapcore.NewNopCore()
	var redirected string
	if lowest, ok := lowestLevel[conf.FileLogger.Level]; ok {
		captureCrashOutput(conf.FileLogger)

		f, err := openLog(conf.FileLogger.Destination, conf.FileLogger.Mode)
		if err != nil {
			if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
				return nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
			}
			redirected = f.Name()
		}
		fileCore = zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.Lock(f),
			zap.NewAtomicLevelAt(lowest))
	}

	log := zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller())
	if len(redirected) != 0 {
		log.Warn("Log file was redirected to new location", zap.String("location", redirected))
	}
	return log.Named(misc.GetAppName()), nil
}

func consoleEncoder(stream *os.File, filtered bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if filtered {
		return newEncoder(ec)
	}
	return zapcore.NewConsoleEncoder(ec)
}

func openLog(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0644)
}

// captureCrashOutput sends runtime crash output next to the log file, or to
// temporary directory. Failures are quietly ignored.
func captureCrashOutput(conf LoggerConfig) {
	name := filepath.Join(filepath.Dir(conf.Destination), misc.GetAppName()+"-panic.log")
	f, err := openLog(name, conf.Mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			return
		}
	}
	defer f.Close()
	_ = debug.SetCrashOutput(f, debug.CrashOptions{})
}

// When logging error to console - do not output verbose message.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			e := f.Interface.(error)
			f.Interface = errors.New(e.Error())
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
