package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/themeshop/internal/client/api"
	"github.com/iudanet/themeshop/internal/client/auth"
	"github.com/iudanet/themeshop/internal/client/cli"
	"github.com/iudanet/themeshop/internal/client/iocli"
	"github.com/iudanet/themeshop/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "themeshop-client.db", "Path to local session database")
	password := flag.String("password", "", "Account password (not recommended)")
	passwordFile := flag.String("password-file", "", "Path to file containing account password")
	verbose := flag.Bool("verbose", false, "Log debug messages to stderr")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	stdio := iocli.NewStdio()

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, stdio, logger, *serverURL, *dbPath, cli.Passwords{
		FromFile: *passwordFile,
		FromArgs: *password,
	}, args)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var unknown *cli.ErrUnknownCommand
		if errors.As(err, &unknown) {
			cli.PrintUsage(stdio)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, stdio iocli.IO, logger *slog.Logger, serverURL, dbPath string, passwords cli.Passwords, args []string) error {
	// Открываем BoltDB storage
	boltStorage, err := boltdb.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	apiClient := api.NewClient(serverURL)
	sessions := auth.NewSessionManager(apiClient, boltStorage, logger)

	return cli.New(stdio, sessions, passwords).Run(ctx, args[0], args[1:])
}

func printVersion() {
	fmt.Printf("ThemeShop Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
