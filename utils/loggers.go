package utils

import (
	"os"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func InitLogger(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

func LogInfo(message string) {
	logger.Info().Msg(message)
}

func LogWarn(message string) {
	logger.Warn().Msg(message)
}

func LogError(message string, err error) {
	if err != nil {
		logger.Error().Err(err).Msg(message)
	} else {
		logger.Error().Msg(message)
	}
}

func LogFatal(message string, err error) {
	if err != nil {
		logger.Fatal().Err(err).Msg(message)
	} else {
		logger.Fatal().Msg(message)
	}
}
