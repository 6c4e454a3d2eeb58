package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newLogger() zerolog.Logger {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}
	consoleWriter.TimeFormat = "[" + time.RFC3339 + "]"
	consoleWriter.PartsOrder = []string{
		zerolog.TimestampFieldName,
		zerolog.LevelFieldName,
		zerolog.CallerFieldName,
		zerolog.MessageFieldName,
	}

	logger := zerolog.New(consoleWriter).
		With().Timestamp().Logger()

	level := zerolog.InfoLevel
	envLevel, ok := os.LookupEnv("LOG_LEVEL")
	if ok {
		parsed, err := zerolog.ParseLevel(envLevel)
		if err != nil {
			logger.Warn().Err(err).Msg("could not parse environment variable LOG_LEVEL")
			return logger
		}
		level = parsed
	}

	return logger.Level(level)
}

// loadDotEnv reads .env from the working directory when there is one.
func loadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func main() {
	args := Command{}
	cli := kong.Parse(&args,
		kong.Name("jpfpack"),
		kong.Description("Pack game assets into JPF archives."),
		kong.UsageOnError(),
	)

	envErr := loadDotEnv()
	logger := newLogger()
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("could not load .env file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignals(cancel)

	var err error
	command := cli.Selected().Name
	switch command {
	case "version":
		fmt.Println(version)
	case "pack":
		err = packCommand(ctx, args, logger)
	case "list":
		err = listCommand(ctx, args, os.Stdout)
	case "unpack":
		err = unpackCommand(ctx, args, logger)
	case "history":
		err = historyCommand(ctx, args, os.Stdout, logger)
	case "lookup":
		err = lookupCommand(ctx, args, os.Stdout, logger)
	case "prune":
		err = pruneCommand(ctx, args, logger)
	case "daemon":
		err = daemonCommand(ctx, args, logger)
	default:
		panic(cli.Command())
	}
	if err != nil {
		logger.Error().Err(err).Msg(command + " error")
		cli.Exit(1)
	}
}

func setupSignals(onSignal func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		onSignal()
	}()
}
