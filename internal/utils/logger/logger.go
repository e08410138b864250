// Package logger configures the global zerolog logger for the application
package logger

import (
	"flag"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var (
	debug = flag.Bool("debug", false, "sets log level to debug")
	trace = flag.Bool("trace", false, "sets log level to trace")
	info  = flag.Bool("info", false, "sets log level to info (default)")
)

// LevelForEnvironment maps ENVIRONMENT values to a log level. Unknown
// environments fall back to info.
func LevelForEnvironment(environment string) zerolog.Level {
	switch strings.ToLower(environment) {
	case "dev", "test":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

func initLogger(out io.Writer) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out}).With().Caller().Logger()

	if !flag.Parsed() {
		flag.Parse()
	}

	environment := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if environment == "" {
		environment = "prod"
	}

	logLevel := LevelForEnvironment(environment)
	switch environment {
	case "dev", "test":
		log.Info().Str("environment", environment).Msg("Development/Test environment detected - enabling all log levels")
	case "prod":
		log.Info().Str("environment", environment).Msg("Production environment detected - enabling info level and above")
	default:
		log.Warn().Str("environment", environment).Msg("Unknown environment - defaulting to production log level (info and above)")
	}

	if *debug {
		logLevel = zerolog.DebugLevel
		log.Info().Msg("Debug flag detected - overriding environment log level")
	} else if *trace {
		logLevel = zerolog.TraceLevel
		log.Info().Msg("Trace flag detected - overriding environment log level")
	} else if *info {
		logLevel = zerolog.InfoLevel
		log.Info().Msg("Info flag detected - overriding environment log level")
	}

	zerolog.SetGlobalLevel(logLevel)

	switch logLevel {
	case zerolog.DebugLevel:
		log.Debug().Str("environment", environment).Msg("Debug logging enabled")
	case zerolog.TraceLevel:
		log.Trace().Str("environment", environment).Msg("Trace logging enabled")
	case zerolog.InfoLevel:
		log.Info().Str("environment", environment).Msg("Info logging enabled")
	}
}

// Init initializes the logger with the configuration from the environment
// and command line flags.
// It sets up the global logger to use zerolog with console output.
// Example usage:
//
//	logger.Init() <- inside whichever main() function in your entrypoint
//
// Then, `go run ./cmd/swarmwatch --debug`
func Init() {
	initLogger(os.Stderr)
}
