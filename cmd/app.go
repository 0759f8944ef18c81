/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"io"
	"log/slog"

	"github.com/ikasoba/notesync/core"
)

// app wires one client session.
type app struct {
	logger     *slog.Logger
	store      *core.Store
	client     *core.Client
	dispatcher *core.AsyncDispatcher
	session    *core.Session

	logCloser io.Closer
}

func newApp() (*app, error) {
	logger, logCloser := newLogger(cfg.GetString("log-level"), cfg.GetString("log-file"))

	store, err := core.OpenStore(cfg.GetString("home"))
	if err != nil {
		logCloser.Close()
		return nil, err
	}

	logger.Debug("opened local store", "home", store.HomePath)

	client := core.NewClient(cfg.GetString("api-url"), store, cfg.GetDuration("timeout"))
	dispatcher := core.NewAsyncDispatcher(client, logger)
	engine := core.NewEngine(dispatcher, logger)

	session := core.NewSession(store, client, engine,
		core.WithLogger(logger),
		core.WithWelcomeNote(cfg.GetBool("welcome")),
	)

	return &app{
		logger:     logger,
		store:      store,
		client:     client,
		dispatcher: dispatcher,
		session:    session,
		logCloser:  logCloser,
	}, nil
}

// Close lets in-flight remote writes settle before the process exits.
func (a *app) Close() {
	a.dispatcher.Wait()

	if dispatched, failed := a.dispatcher.Stats(); dispatched > 0 {
		a.logger.Info("remote writes settled", "dispatched", dispatched, "failed", failed)
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}

	a.logCloser.Close()
}
