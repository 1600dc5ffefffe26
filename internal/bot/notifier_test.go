package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v3"

	"optionscout/internal/domain"
)

type stubSender struct {
	to   tele.Recipient
	what interface{}
	err  error
}

func (s *stubSender) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	s.to, s.what = to, what
	return &tele.Message{}, s.err
}

func sampleAlert() domain.Alert {
	iv := 0.42
	return domain.Alert{
		CriteriaName: "juicy puts",
		Opportunity: domain.AlertSnapshot{
			Underlying:   "TSLA",
			Strategy:     domain.StrategyCashSecuredPut,
			Strike:       200,
			Expiration:   time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC),
			Premium:      4.1,
			ROI:          2.05,
			PoP:          68,
			IV:           &iv,
			Volume:       1200,
			OpenInterest: 5400,
			Score:        81,
		},
	}
}

func TestNotifierSendsToChat(t *testing.T) {
	sender := &stubSender{}
	n := NewNotifier(sender, 4242)

	if err := n.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.to.Recipient() != "4242" {
		t.Fatalf("unexpected recipient: %s", sender.to.Recipient())
	}
	msg, _ := sender.what.(string)
	for _, want := range []string{"Alert: juicy puts", "TSLA cash_secured_put $200.00 exp 2025-04-17", "score 81", "IV 42.0%"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q: %s", want, msg)
		}
	}
}

func TestNotifierErrors(t *testing.T) {
	var nilNotifier *Notifier
	if err := nilNotifier.Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected error for unconfigured notifier")
	}

	sender := &stubSender{err: errors.New("chat not found")}
	if err := NewNotifier(sender, 1).Notify(context.Background(), sampleAlert()); err == nil {
		t.Fatal("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewNotifier(&stubSender{}, 1).Notify(ctx, sampleAlert()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
