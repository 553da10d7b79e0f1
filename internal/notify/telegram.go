// Package notify sends outbound ops alerts over Telegram. Alerts are
// best-effort: send failures are logged and never propagate.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/pben56681-png/israell/internal/execution"
)

// Notifier pushes alerts to a configured chat
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New creates a notifier, or returns nil when no token is configured
func New(token string, chatID int64) (*Notifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📣 Telegram alerts enabled")
	return &Notifier{api: api, chatID: chatID}, nil
}

// TradeCompleted reports an executed arbitrage attempt
func (n *Notifier) TradeCompleted(ev execution.TradeEvent) {
	if n == nil {
		return
	}

	var text string
	switch ev.Status {
	case execution.StatusFilled:
		text = fmt.Sprintf("✅ Arb filled on %s\nYES %s + NO %s | edge %s | size %s",
			ev.MarketID, ev.YesPrice, ev.NoPrice, ev.Edge, ev.Size)
	case execution.StatusPartialFillEmergency:
		text = fmt.Sprintf("🚨 PARTIAL FILL EMERGENCY on %s\nSafe mode latched, position flattened. Operator attention required.",
			ev.MarketID)
	default:
		return
	}

	n.send(text)
}

// SafeModeEntered reports the irreversible halt
func (n *Notifier) SafeModeEntered(reason string) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("🛑 SAFE MODE: %s\nAll trade approvals halted until restart.", reason))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}
