package bot

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
)

// Telegram limits for message text and photo captions.
const (
	maxMessageLength = 4096
	maxCaptionLength = 1024
)

// Handler holds dependencies for the Telegram bot handlers.
type Handler struct {
	bot      *tgbot.Bot
	commands *commands
	log      logrus.FieldLogger
}

// NewHandler creates a new bot handler instance.
func NewHandler(token string, service LinkService, logger logrus.FieldLogger) (*Handler, error) {
	log := logger.WithField("component", "bot_handler")

	h := &Handler{
		commands: &commands{links: service, log: log},
		log:      log,
	}

	// Every text message goes through the default handler, which dispatches
	// commands itself so that matching order never matters.
	b, err := tgbot.New(token, tgbot.WithDefaultHandler(h.defaultHandler))
	if err != nil {
		log.WithError(err).Error("Failed to create Telegram bot instance")
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	h.bot = b

	log.Info("Telegram bot handler initialized")
	return h, nil
}

// Start begins polling for updates from Telegram.
// This function blocks until the context is cancelled.
func (h *Handler) Start(ctx context.Context) {
	h.log.Info("Starting Telegram bot polling...")
	h.bot.Start(ctx)
	h.log.Info("Telegram bot polling stopped.")
}

func (h *Handler) defaultHandler(ctx context.Context, b *tgbot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	for _, r := range h.commands.dispatch(ctx, msg.From.ID, msg.Text) {
		h.send(ctx, b, msg.Chat.ID, r)
	}
}

func (h *Handler) send(ctx context.Context, b *tgbot.Bot, chatID int64, r reply) {
	log := h.log.WithField("chat_id", chatID)

	if r.photo != nil {
		_, err := b.SendPhoto(ctx, &tgbot.SendPhotoParams{
			ChatID:  chatID,
			Photo:   &models.InputFileUpload{Filename: "preview.jpg", Data: bytes.NewReader(r.photo)},
			Caption: truncate(r.text, maxCaptionLength),
		})
		if err == nil {
			return
		}
		// Telegram rejects some images; fall back to text only.
		log.WithError(err).Warn("Failed to send preview photo")
	}

	_, err := b.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: chatID,
		Text:   truncate(r.text, maxMessageLength),
	})
	if err != nil {
		log.WithError(err).Error("Failed to send message")
	}
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
