package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
)

// HandleCancelCallback обрабатывает выбор под /cancel_job
func (h *Handlers) HandleCancelCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	prefix, id, err := parseCallback(query.Data)
	if err == nil && prefix != cancelOnePrefix && prefix != cancelAllPrefix && prefix != cancelKeepPrefix {
		err = fmt.Errorf("not a cancel callback %q", query.Data)
	}
	if err != nil {
		h.logger.Warn("Unknown callback", zap.String("data", query.Data), zap.Error(err))
		h.answerCallback(ctx, b, query.ID, "❌ Unknown action", true)
		return
	}

	var text string
	switch prefix {
	case cancelKeepPrefix:
		text = fmt.Sprintf("↩️ Job #%d kept", id)
	case cancelOnePrefix, cancelAllPrefix:
		cascade := prefix == cancelAllPrefix
		n, err := h.occurrenceService.Cancel(ctx, id, cascade)
		if err != nil {
			if !apperr.Is(err, apperr.ErrInvalidTransition) && !apperr.Is(err, apperr.ErrNotFound) {
				h.logger.Error("Failed to cancel job",
					zap.Int64("occurrence_id", id),
					zap.Bool("cascade", cascade),
					zap.Error(err),
				)
			}
			h.answerCallback(ctx, b, query.ID, apperr.UserMessage(err), true)
			return
		}
		text = fmt.Sprintf("❌ Job #%d cancelled", id)
		if cascade {
			text = fmt.Sprintf("❌ Cancelled job #%d and the following ones: %d in total", id, n)
		}
	}

	h.answerCallback(ctx, b, query.ID, "", false)
	h.editCallbackMessage(ctx, b, query, text)
}

func (h *Handlers) answerCallback(ctx context.Context, b *bot.Bot, queryID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Error("Failed to answer callback", zap.Error(err))
	}
}

// editCallbackMessage заменяет сообщение с клавиатурой на text
func (h *Handlers) editCallbackMessage(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, text string) {
	msg := query.Message.Message
	if msg == nil {
		h.sendMessage(ctx, b, query.From.ID, text)
		return
	}

	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	})
	if err != nil {
		h.logger.Error("Failed to edit message", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}
