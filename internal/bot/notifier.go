package bot

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v3"

	"optionscout/internal/domain"
)

// Sender is the part of *tele.Bot used to push messages.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers triggered alerts to a Telegram chat.
type Notifier struct {
	sender Sender
	chat   tele.Recipient
}

func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chat: tele.ChatID(chatID)}
}

func (n *Notifier) Notify(ctx context.Context, alert domain.Alert) error {
	if n == nil || n.sender == nil {
		return errors.New("telegram notifier not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := n.sender.Send(n.chat, formatAlert(alert))
	return err
}

func formatAlert(a domain.Alert) string {
	o := a.Opportunity
	msg := fmt.Sprintf(
		"Alert: %s\n%s %s $%.2f exp %s\nPremium $%.2f | ROI %.2f%% | PoP %.0f%% | score %d\nVolume %d | OI %d",
		a.CriteriaName,
		o.Underlying, o.Strategy, o.Strike, o.Expiration.Format("2006-01-02"),
		o.Premium, o.ROI, o.PoP, o.Score,
		o.Volume, o.OpenInterest,
	)
	if o.IV != nil {
		msg += fmt.Sprintf(" | IV %.1f%%", *o.IV*100)
	}
	return msg
}
