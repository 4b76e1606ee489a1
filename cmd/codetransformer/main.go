package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/NorthSeacoder/codetransformer/internal/cli"
	"github.com/NorthSeacoder/codetransformer/internal/utils"
)

const environmentFileName = ".env"

// main is the entry point for the codetransformer command.
func main() {
	logLevel := zap.NewAtomicLevelAt(zap.InfoLevel)
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(logLevel)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()

	// CODETRANSFORMER_* variables may come from a .env file in the working directory.
	if environmentError := godotenv.Load(environmentFileName); environmentError != nil && !errors.Is(environmentError, os.ErrNotExist) {
		loggerInstance.Warn("unable to load environment file", zap.String("path", environmentFileName), zap.Error(environmentError))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applicationExecutionError := cli.Execute(ctx, cli.Dependencies{Logger: loggerInstance, LogLevel: &logLevel})
	if applicationExecutionError != nil {
		stop()
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
