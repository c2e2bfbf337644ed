package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/bizbot/internal/conversation"
	"github.com/susu3304/bizbot/internal/session"
)

type Bot struct {
	session *discordgo.Session
	router  *conversation.Router
	sweeper *sweepWorker
	logger  *slog.Logger
}

type Options struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

func New(token string, router *conversation.Router, sessions *session.MemoryStore, opts Options, logger *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session: s,
		router:  router,
		logger:  logger,
	}
	if opts.SessionTTL > 0 {
		bot.sweeper = newSweepWorker(s, sessions, opts.SessionTTL, opts.SweepInterval, logger)
	}

	// Register event handlers
	s.AddHandler(bot.onReady)
	s.AddHandler(bot.onGuildCreate)
	s.AddHandler(bot.onMessageCreate)
	s.AddHandler(bot.onInteractionCreate)

	s.Identify.Intents = discordgo.IntentsAll

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.sweeper.start()
	b.logger.Info("discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.sweeper.stop()
	return b.session.Close()
}
