package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// AdminOnly пропускает только диспетчеров из BOT_ADMIN_IDS
func (h *Handlers) AdminOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		userID, chatID := senderOf(update)
		if userID != 0 && h.isAdmin(userID) {
			next(ctx, b, update)
			return
		}

		h.logger.Warn("Rejected command from non-admin", zap.Int64("telegram_id", userID))

		if update.CallbackQuery != nil {
			h.answerCallback(ctx, b, update.CallbackQuery.ID, "⛔️ Only dispatchers can do this", true)
			return
		}
		if chatID != 0 {
			h.sendMessage(ctx, b, chatID, "⛔️ Only dispatchers can do this")
		}
	}
}

func senderOf(update *models.Update) (userID, chatID int64) {
	switch {
	case update.Message != nil:
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return userID, update.Message.Chat.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, 0
	}
	return 0, 0
}
