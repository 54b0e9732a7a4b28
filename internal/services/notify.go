package services

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go"
	"github.com/shopspring/decimal"
)

// Notifier pushes payment outcomes to buyers over PubNub. Each purchase gets
// its own channel so a checkout page can subscribe before redirecting to the
// gateway. A nil Notifier drops everything, which keeps the payment path
// usable in tests and in deployments without PubNub keys.
type Notifier struct {
	pubnub *pubnub.PubNub
}

func NewNotifier(pn *pubnub.PubNub) *Notifier {
	if pn == nil {
		return nil
	}
	return &Notifier{pubnub: pn}
}

func (n *Notifier) PaymentCompleted(purchaseID, reference string, amount decimal.Decimal) {
	n.publish(purchaseID, map[string]any{
		"type":      "payment_status",
		"status":    "completed",
		"reference": reference,
		"amount":    amount.StringFixed(2),
	})
}

func (n *Notifier) PaymentFailed(purchaseID, reference, reason string) {
	n.publish(purchaseID, map[string]any{
		"type":      "payment_status",
		"status":    "failed",
		"reference": reference,
		"reason":    reason,
	})
}

func (n *Notifier) publish(purchaseID string, message map[string]any) {
	if n == nil {
		return
	}

	channel := fmt.Sprintf("buyer-%s", purchaseID)
	_, _, err := n.pubnub.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		slog.Error("buyer notification failed", "channel", channel, "err", err)
	}
}
