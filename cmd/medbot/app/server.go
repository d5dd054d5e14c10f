// Package app provides the medbot server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/medbot/cmd/medbot/app/options"
	"github.com/kart-io/medbot/pkg/infra/app"
)

const (
	// Name is the name of the application.
	Name = "medbot"

	// commandDesc is the description of the command.
	commandDesc = `Medbot Medical Chat Service

A retrieval-augmented chat service answering general medical questions.

Each message is:
  - embedded with the configured embedding provider
  - matched against a vector index of medical passages
  - answered by a language model using the retrieved passages as context

Answers are general information only and always defer to healthcare
professionals for personal advice.`
)

// envAliases maps config keys to the plain environment variables used by
// existing deployments. MEDBOT_* variables work for every key as well.
var envAliases = map[string]string{
	"embedding.api-key":    "EMBEDDING_API_KEY",
	"vector-index.api-key": "VECTOR_INDEX_API_KEY",
	"chat.api-key":         "LLM_API_KEY",
	"vector-index.name":    "VECTOR_INDEX_NAME",
}

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	var application *app.App
	application = app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Medical retrieval-augmented chat service"),
		app.WithDescription(commandDesc),
		app.WithEnvAliases(envAliases),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return run(opts, application)
		}),
	)
	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions, application *app.App) error {
	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Viper = application.Viper()

	ctx := setupSignalContext()

	server, err := cfg.NewServer(ctx)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Run(ctx)
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
