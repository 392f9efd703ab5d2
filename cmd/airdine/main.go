// airdine is a terminal client for browsing restaurant offers and
// activating them for a time-limited redemption code.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kahan44/airdine/internal/activation"
	"github.com/kahan44/airdine/internal/api"
	"github.com/kahan44/airdine/internal/app"
	"github.com/kahan44/airdine/internal/credential"
	"github.com/kahan44/airdine/internal/logging"
	"github.com/kahan44/airdine/internal/model"
	"github.com/kahan44/airdine/internal/store"
	appsync "github.com/kahan44/airdine/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "airdine:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	st, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acts, err := activation.Open(ctx,
		store.NewNamedSlot(st, cfg.Activation.Slot),
		activation.WithLogger(log))
	if err != nil {
		return err
	}

	creds, err := credential.Open()
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.API.BaseURL,
		api.WithTokenStore(creds),
		api.WithTimeout(cfg.API.Timeout()),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithLogger(log))

	poller := appsync.New(st, client,
		appsync.WithInterval(cfg.Sync.PollInterval()),
		appsync.WithActivator(acts),
		appsync.WithLogger(log))

	sweeper := activation.NewSweeper(cfg.Activation.SweepInterval(), acts, log)
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("activation sweeper stopped")
		}
	}()

	root := app.New(app.Deps{
		Store:       st,
		Activations: acts,
		Client:      client,
		Poller:      poller,
		Credentials: creds,
		Config:      cfg,
		ConfigPath:  *configPath,
		Logger:      log,
	})

	log.Info().Str("base_url", cfg.API.BaseURL).Msg("starting")
	_, err = tea.NewProgram(root, tea.WithAltScreen()).Run()
	poller.Stop()
	return err
}
