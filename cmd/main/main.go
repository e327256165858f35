package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/matt-steen/todostream/pkg/auth"
	"github.com/matt-steen/todostream/pkg/config"
	"github.com/matt-steen/todostream/pkg/controller"
	"github.com/matt-steen/todostream/pkg/db"
	"github.com/matt-steen/todostream/pkg/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	filePerms = 0o666
	dirPerms  = 0o755
)

func main() {
	Execute()
}

// setupLogging points the global logger at the log file. The terminal belongs to the screen.
func setupLogging(conf *config.Config) (io.Closer, error) {
	level, err := conf.Level()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(conf.LogPath), dirPerms); err != nil {
		return nil, fmt.Errorf("error creating log directory: %w", err)
	}

	logFile, err := os.OpenFile(conf.LogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, fs.FileMode(filePerms))
	if err != nil {
		return nil, fmt.Errorf("error opening log file: %w", err)
	}

	zerolog.SetGlobalLevel(level)

	log.Logger = log.With().Caller().Logger().Output(zerolog.ConsoleWriter{
		Out: logFile, TimeFormat: "2006-01-02_15:04:05",
	})

	return logFile, nil
}

// run opens both collaborators, starts the controller and shows the screen until the
// user quits.
func run(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logFile, err := setupLogging(conf)
	if err != nil {
		return err
	}

	defer logFile.Close()

	log.Info().Msg("starting application...")

	if err := os.MkdirAll(filepath.Dir(conf.DatabasePath), dirPerms); err != nil {
		return fmt.Errorf("error creating database directory: %w", err)
	}

	store, err := db.NewDatabase(ctx, conf.DatabasePath)
	if err != nil {
		return err
	}

	defer store.Close()

	accounts, err := auth.OpenAccounts(fmt.Sprintf("file:%s?_busy_timeout=5000", conf.DatabasePath))
	if err != nil {
		return err
	}

	defer accounts.Close()

	verifier, err := conf.Verifier()
	if err != nil {
		return err
	}

	if verifier == nil {
		log.Info().Msg("no oauth key configured; Google sign-in is disabled")
	}

	service := auth.NewService(accounts, auth.NewPasswordHasher(auth.DefaultBcryptCost), verifier)

	ctrl, err := controller.NewController(service, store, controller.Settings{
		Collection: conf.Collection,
		UndoWindow: conf.UndoWindow,
	})
	if err != nil {
		return err
	}

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	defer ctrl.Close()

	if err := ui.NewScreen(ctx, ctrl, nil).Run(); err != nil {
		return fmt.Errorf("error running screen: %w", err)
	}

	log.Info().Msg("exiting application")

	return nil
}
