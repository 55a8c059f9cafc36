// Package notify sends regime-change alerts over Telegram.
package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/riskpulse/internal/macro"
	"github.com/quantfold/riskpulse/models"
)

// Notifier posts macro regime alerts to a single chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// New creates a Telegram notifier.
func New(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "notifier").Logger(),
	}, nil
}

// ShouldAlert reports whether the new payload warrants a message: the mode
// flipped versus the previously persisted payload, or the score is moving.
func ShouldAlert(payload models.MacroScorePayload, previous *models.MacroScorePayload) bool {
	if payload.Transition != models.Stable {
		return true
	}
	return previous != nil && previous.MacroMode != payload.MacroMode
}

// MacroAlert formats and sends the regime alert.
func (n *Notifier) MacroAlert(payload models.MacroScorePayload, previous *models.MacroScorePayload) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Macro regime: %s (score %.2f, confidence %.0f%%)\n",
		payload.MacroMode, payload.GlobalScore, payload.Confidence*100)
	if previous != nil && previous.MacroMode != payload.MacroMode {
		fmt.Fprintf(&b, "Changed from %s\n", previous.MacroMode)
	}
	if payload.Transition != models.Stable {
		fmt.Fprintf(&b, "Trend over last %d sessions: %s\n", macro.TransitionLookbackSessions, payload.Transition)
	}
	if len(payload.Reasons) > 0 {
		fmt.Fprintf(&b, "Drivers: %s", strings.Join(payload.Reasons, "; "))
	}

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("sending alert: %w", err)
	}

	n.logger.Info().Str("mode", string(payload.MacroMode)).Msg("alert sent")
	return nil
}
