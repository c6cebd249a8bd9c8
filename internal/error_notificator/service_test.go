package error_notificator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type recorder struct {
	calls []string
	err   error
}

func (r *recorder) Notify(_ context.Context, source string, _ error, _ string) error {
	r.calls = append(r.calls, source)
	return r.err
}

func TestServiceSuppressesWithinWindow(t *testing.T) {
	rec := &recorder{}
	svc := NewService(rec, time.Minute, nil)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	boom := errors.New("boom")

	svc.Notify(ctx, "transcribe", boom, "")
	svc.Notify(ctx, "transcribe", boom, "")
	svc.Notify(ctx, "classify", boom, "")

	now = now.Add(2 * time.Minute)
	svc.Notify(ctx, "transcribe", boom, "")

	want := []string{"transcribe", "classify", "transcribe"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
}

func TestServiceReturnsDeliveryError(t *testing.T) {
	rec := &recorder{err: errors.New("telegram down")}
	svc := NewService(rec, 0, nil)

	if err := svc.Notify(context.Background(), "tts", errors.New("x"), ""); err == nil {
		t.Fatal("expected delivery error")
	}
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func TestTelegramInfraFormatsMessage(t *testing.T) {
	bot := &fakeBot{}
	infra := &TelegramInfra{bot: bot, chatID: 42}

	if err := infra.Notify(context.Background(), "classify", errors.New("429"), "path=/inbox"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Fatalf("sent %d messages", len(bot.sent))
	}
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("unexpected chattable %T", bot.sent[0])
	}
	if msg.ChatID != 42 {
		t.Errorf("ChatID = %d", msg.ChatID)
	}
	for _, part := range []string{"classify", "429", "path=/inbox"} {
		if !strings.Contains(msg.Text, part) {
			t.Errorf("text %q missing %q", msg.Text, part)
		}
	}
}
