// Package logging sets up zerolog for the gateway process.
package logging

import (
	"os"
	"runtime"
	"strings"

	"github.com/srgkas/laravel-echo-server/internal/config"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logLevelMatches = map[string]zerolog.Level{
	"NONE":  zerolog.NoLevel,
	"TRACE": zerolog.TraceLevel,
	"DEBUG": zerolog.DebugLevel,
	"INFO":  zerolog.InfoLevel,
	"WARN":  zerolog.WarnLevel,
	"ERROR": zerolog.ErrorLevel,
	"FATAL": zerolog.FatalLevel,
}

func configureConsoleWriter() {
	if isTerminalAttached() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02 15:04:05",
		})
	}
}

func isTerminalAttached() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) && runtime.GOOS != "windows"
}

// Setup configures the global logger from config. It returns a close
// function to call on shutdown (nil when no log file is used).
func Setup(cfg config.Config) func() {
	configureConsoleWriter()
	logLevel, ok := logLevelMatches[strings.ToUpper(cfg.LogLevel)]
	if !ok {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatal().Msgf("error opening log file: %v", err)
		}
		log.Logger = log.Output(f)
		return func() {
			_ = f.Close()
		}
	}
	return nil
}

// Enabled checks if a specific logging level is enabled.
func Enabled(level zerolog.Level) bool {
	return level >= zerolog.GlobalLevel()
}
