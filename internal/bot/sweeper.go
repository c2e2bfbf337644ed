package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/bizbot/internal/session"
)

// sweepWorker drops wizards nobody has touched for ttl and tells the user.
type sweepWorker struct {
	sessions *session.MemoryStore
	session  messageSender
	logger   *slog.Logger
	stopChan chan struct{}
	ticker   *time.Ticker
	ttl      time.Duration
	interval time.Duration
}

// Minimal session interface for sending channel messages.
type messageSender interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func newSweepWorker(sender messageSender, sessions *session.MemoryStore, ttl, interval time.Duration, logger *slog.Logger) *sweepWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &sweepWorker{
		sessions: sessions,
		session:  sender,
		logger:   logger,
		stopChan: make(chan struct{}),
		ttl:      ttl,
		interval: interval,
	}
}

func (w *sweepWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *sweepWorker) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *sweepWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *sweepWorker) tick(ctx context.Context) {
	for _, e := range w.sessions.Expire(w.ttl) {
		w.logger.Info("wizard expired", "user", e.UserID, "state", e.State.Name)
		if e.State.ChannelID == "" {
			continue
		}
		msg := fmt.Sprintf("<@%s> your unfinished input timed out. Start again from the menu.", e.UserID)
		if err := w.sendWithRetry(ctx, e.State.ChannelID, msg); err != nil {
			w.logger.Error("failed to send expiry notice", "channel", e.State.ChannelID, "error", err)
		}
	}
}

func (w *sweepWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		return re.Response.StatusCode >= http.StatusInternalServerError
	}
	return false
}
