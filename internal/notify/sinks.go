package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"codeberg.org/mutker/hwmond/internal/alert"
	"codeberg.org/mutker/hwmond/internal/errors"
)

// SubscriberFunc is the outward alert subscription surface: sensor name,
// human-readable message, and the rule that matched.
type SubscriberFunc func(sensorName, message string, rule alert.Rule)

type subscriberSink struct {
	name string
	fn   SubscriberFunc
}

// NewSubscriber adapts a callback into a sink. The callback runs on a
// dispatcher worker; it should hand off rather than do slow work inline.
func NewSubscriber(name string, fn SubscriberFunc) Sink {
	return &subscriberSink{name: name, fn: fn}
}

func (s *subscriberSink) Name() string {
	return s.name
}

func (s *subscriberSink) Send(_ context.Context, event alert.Event) error {
	s.fn(event.Sensor, event.Message, event.Rule)

	return nil
}

const (
	telegramTitle    = "hwmond alert"
	telegramAttempts = 3
	telegramRetryGap = time.Second

	// Telegram throttles bots around one message per second per chat.
	telegramPerSecond = 1
)

// TelegramSink pushes alert messages to a chat. Events whose rule has
// notifications switched off are skipped.
type TelegramSink struct {
	bot     *bot.Bot
	chatID  string
	limiter *rate.Limiter
}

func NewTelegramSink(token, chatID string) (*TelegramSink, error) {
	if token == "" || chatID == "" {
		return nil, errors.WithMessage(errors.ErrInvalidConfig, "telegram sink needs token and chat id")
	}

	// Skip the GetMe probe so a missing network at startup does not take
	// the whole daemon down; bad credentials surface on first send.
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, errors.Wrap(errors.ErrNotifyDispatch, err)
	}

	return &TelegramSink{
		bot:     b,
		chatID:  chatID,
		limiter: rate.NewLimiter(rate.Limit(telegramPerSecond), telegramPerSecond),
	}, nil
}

func (t *TelegramSink) Name() string {
	return "telegram"
}

func (t *TelegramSink) Send(ctx context.Context, event alert.Event) error {
	if !event.Rule.Notify {
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return errors.Wrap(errors.ErrNotifyDispatch, err)
	}

	text := fmt.Sprintf("*%s*\n%s", telegramTitle, event.Message)

	var lastErr error
	for attempt := 0; attempt < telegramAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(errors.ErrNotifyDispatch, ctx.Err())
			case <-time.After(telegramRetryGap):
			}
		}

		_, lastErr = t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    t.chatID,
			Text:      text,
			ParseMode: "Markdown",
		})
		if lastErr == nil {
			return nil
		}
	}

	return errors.Wrap(errors.ErrNotifyDispatch, lastErr)
}
