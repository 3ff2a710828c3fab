// Package telegram pushes notifications to creators who linked a Telegram
// account. It is outbound-only; Telegram is not a chat transport here.
package telegram

import (
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const previewLimit = 80

type Notifier struct {
	bot *tgbotapi.BotAPI
}

// NewNotifier creates a notifier from a bot token.
func NewNotifier(token string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Printf("telegram: notifier authorized as @%s", bot.Self.UserName)
	return &Notifier{bot: bot}, nil
}

// NotifyNewPaidMessage tells the creator a paid message is waiting. A nil
// notifier or an unlinked creator is a no-op; delivery failures are logged,
// never propagated; notifications are best effort.
func (n *Notifier) NotifyNewPaidMessage(chatID string, amountCents int64, preview string) {
	if n == nil || chatID == "" {
		return
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		log.Printf("telegram: bad chat id %q: %v", chatID, err)
		return
	}

	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "…"
	}
	text := fmt.Sprintf("💬 New paid message ($%.2f):\n%s", float64(amountCents)/100, preview)

	if _, err := n.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		log.Printf("telegram: could not notify chat %d: %v", id, err)
	}
}

// NotifyPayout tells the creator a payout went through.
func (n *Notifier) NotifyPayout(chatID string, totalCents int64, transferID string) {
	if n == nil || chatID == "" {
		return
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		log.Printf("telegram: bad chat id %q: %v", chatID, err)
		return
	}

	text := fmt.Sprintf("💸 Payout of $%.2f sent (transfer %s).", float64(totalCents)/100, transferID)
	if _, err := n.bot.Send(tgbotapi.NewMessage(id, text)); err != nil {
		log.Printf("telegram: could not notify chat %d: %v", id, err)
	}
}
