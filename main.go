package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"reportbot/config"
	"reportbot/form"
	"reportbot/handler"
	"reportbot/repo"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}
	if cfg.Token == "" {
		log.Fatal().Msg("BOT_TOKEN environment variable not set")
	}

	store, err := repo.New(cfg.DatabasePath, cfg.Schema())
	if err != nil {
		log.Fatal().Err(err).Msg("opening database")
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	h := handler.New(cfg, store, form.NewMemoryStore())

	opts := []bot.Option{
		bot.WithDefaultHandler(h.Handle),
	}

	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("creating bot")
	}

	if _, err := b.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Начать работу с ботом"},
			{Command: "menu", Description: "Вернуться в меню"},
		},
	}); err != nil {
		log.Warn().Err(err).Msg("setting bot commands")
	}

	log.Info().Msg("bot started")
	b.Start(ctx)
	log.Info().Msg("bot stopped")
}
