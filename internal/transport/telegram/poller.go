package telegram

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/bargainbliss/linkbot/internal/core/messages"
	"github.com/bargainbliss/linkbot/internal/core/relay"
)

// pollRetryDelay spaces out getUpdates retries after a transport error.
const pollRetryDelay = 3 * time.Second

// Poller long-polls the Bot API and dispatches each message to the
// relay handler. Command messages are answered from the catalog without
// touching quota.
type Poller struct {
	Client  *Client
	Handler *relay.Handler
	Catalog *messages.Catalog
	Logger  *logging.Logger

	PollTimeout time.Duration

	offset int64
	paused atomic.Bool
}

// Pause makes the poller answer every message with the paused template.
func (p *Poller) Pause() { p.paused.Store(true) }

// Resume returns the poller to normal operation.
func (p *Poller) Resume() { p.paused.Store(false) }

// Paused reports whether the poller is in maintenance mode.
func (p *Poller) Paused() bool { return p.paused.Load() }

// Run polls until the context is canceled. Transport errors are logged
// and retried; only context cancellation ends the loop.
func (p *Poller) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.Client.GetUpdates(ctx, p.offset, p.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if p.Logger != nil {
				p.Logger.Warn("poll failed", zap.Error(err))
			}
			if err := sleep(ctx, pollRetryDelay); err != nil {
				return err
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			message := update.Message
			if message == nil || message.From == nil || message.Text == "" {
				continue
			}
			if message.From.IsBot {
				continue
			}

			wg.Add(1)
			go func(msg Message) {
				defer wg.Done()
				p.dispatch(ctx, msg)
			}(*message)
		}
	}
}

// dispatch resolves one message to a reply and sends it.
func (p *Poller) dispatch(ctx context.Context, msg Message) {
	var text string

	switch {
	case p.paused.Load():
		text = p.Catalog.Render(messages.KeyBotPaused, nil)
	case isCommand(msg.Text, "start"):
		text = p.Catalog.Render(messages.KeyStart, nil)
	case isCommand(msg.Text, "help"):
		text = p.Catalog.Render(messages.KeyHelp, nil)
	case isCommand(msg.Text, "tips"):
		text = p.Catalog.Render(messages.KeyTips, nil)
	default:
		// Typing indicator while quota, recognition, and the gateway run
		_ = p.Client.SendChatAction(ctx, msg.Chat.ID, "typing")

		reply := p.Handler.Handle(ctx, relay.Request{
			UserID:  msg.From.ID,
			ChatID:  msg.Chat.ID,
			Text:    msg.Text,
			Private: msg.Chat.IsPrivate(),
		})
		text = reply.Text
	}

	if err := p.Client.SendMessage(ctx, msg.Chat.ID, text); err != nil && p.Logger != nil {
		p.Logger.Warn("send reply failed",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err),
		)
	}
}

// isCommand matches "/name" and "/name@botname" forms.
func isCommand(text, name string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return false
	}
	command := strings.Fields(text)[0]
	command = strings.TrimPrefix(command, "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.EqualFold(command, name)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
