package sender

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"certalert/internal/entity"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	ProviderTelegram = "telegram"
	_telegramMaxText = 4096
)

type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramTransport relays notifications to a compliance chat. Email addresses
// are listed in the message so the chat shows who was notified.
type TelegramTransport struct {
	bot    botSender
	chatID int64
	log    *zap.Logger
}

func NewTelegramTransport(botToken string, chatID int64, log *zap.Logger) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("sender.NewTelegramTransport: create bot: %w", err)
	}

	log.Info("telegram transport initialized",
		zap.String("bot_username", bot.Self.UserName),
		zap.Int64("chat_id", chatID),
	)

	return &TelegramTransport{bot: bot, chatID: chatID, log: log}, nil
}

func (s *TelegramTransport) Name() string { return ProviderTelegram }

func (s *TelegramTransport) Send(ctx context.Context, msg entity.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: telegram: %w", entity.ErrTransport, err)
	}

	text := telegramText(msg)
	out := tgbotapi.NewMessage(s.chatID, text)
	out.DisableWebPagePreview = true

	s.log.Debug("sending telegram message",
		zap.Int64("chat_id", s.chatID),
		zap.String("reminder_id", msg.ReminderID.String()),
	)

	if _, err := s.bot.Send(out); err != nil {
		return fmt.Errorf("%w: telegram: %w", entity.ErrTransport, err)
	}

	s.log.Info("telegram message sent",
		zap.Int64("chat_id", s.chatID),
		zap.String("reminder_id", msg.ReminderID.String()),
	)
	return nil
}

func telegramText(msg entity.Message) string {
	var b strings.Builder
	b.WriteString(msg.Subject)
	b.WriteString("\n\nTo: ")
	b.WriteString(strings.Join(msg.To, ", "))
	b.WriteString("\n\n")
	b.WriteString(msg.TextBody)

	text := b.String()
	// the limit counts characters, and a cut mid-rune is rejected as invalid UTF-8
	if utf8.RuneCountInString(text) > _telegramMaxText {
		text = string([]rune(text)[:_telegramMaxText])
	}
	return text
}
