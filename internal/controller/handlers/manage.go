package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/controller/formatting"
	"github.com/Freeeeeet/servicejobs/internal/controller/keyboard"
)

// HandleNewSeries создаёт серию и сразу генерирует работы окна
func (h *Handlers) HandleNewSeries(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	series, err := parseNewSeries(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	out, err := h.seriesService.Create(ctx, series)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	text := formatting.FormatOutcome(out, fmt.Sprintf("Series #%d created", out.Series.ID)) +
		"\n\n" + formatting.FormatSeries(out.Series)
	h.sendHTML(ctx, b, chatID, text, nil)
}

// HandleEditSeries применяет частичное обновление серии
func (h *Handlers) HandleEditSeries(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, upd, err := parseSeriesEdit(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	out, err := h.seriesService.Update(ctx, id, upd)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendHTML(ctx, b, chatID, formatting.FormatOutcome(out, fmt.Sprintf("Series #%d updated", id)), nil)
}

// HandleDeleteSeries спрашивает подтверждение перед удалением серии
func (h *Handlers) HandleDeleteSeries(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	series, err := h.seriesService.Get(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	kb := keyboard.NewBuilder().
		Row(
			keyboard.Button("🗑 Delete", fmt.Sprintf("%s%d", deleteYesPrefix, id)),
			keyboard.Button("↩️ Keep", fmt.Sprintf("%s%d", deleteNoPrefix, id)),
		).
		Build()

	h.sendHTML(ctx, b, chatID,
		formatting.FormatSeries(series)+"\n\nDelete this series together with all its jobs?", kb)
}

// HandleDeleteCallback обрабатывает ответ на /delete_series
func (h *Handlers) HandleDeleteCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	prefix, id, err := parseCallback(query.Data)
	if err != nil || (prefix != deleteYesPrefix && prefix != deleteNoPrefix) {
		h.logger.Warn("Unknown callback", zap.String("data", query.Data), zap.Error(err))
		h.answerCallback(ctx, b, query.ID, "❌ Unknown action", true)
		return
	}

	text := fmt.Sprintf("↩️ Series #%d kept", id)
	if prefix == deleteYesPrefix {
		if err := h.seriesService.Delete(ctx, id); err != nil {
			if !apperr.Is(err, apperr.ErrNotFound) {
				h.logger.Error("Failed to delete series", zap.Int64("series_id", id), zap.Error(err))
			}
			h.answerCallback(ctx, b, query.ID, apperr.UserMessage(err), true)
			return
		}
		text = fmt.Sprintf("🗑 Series #%d deleted", id)
	}

	h.answerCallback(ctx, b, query.ID, "", false)
	h.editCallbackMessage(ctx, b, query, text)
}

// HandleOverride меняет переопределения одной работы.
// Поля, не названные в команде, остаются как были.
func (h *Handlers) HandleOverride(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, pairs, err := parseFieldArgs(update.Message.Text, overrideUsage)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	occ, err := h.occurrenceService.Get(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	overrides, err := applyOverrideArgs(occ.Overrides, pairs)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if err := h.occurrenceService.SetOverrides(ctx, id, overrides); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.showOccurrence(ctx, b, chatID, id, fmt.Sprintf("✏️ Job #%d updated", id))
}

// HandleAssign назначает или снимает исполнителя работы
func (h *Handlers) HandleAssign(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, assignee, err := parseAssign(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if err := h.occurrenceService.Reassign(ctx, id, assignee); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	heading := fmt.Sprintf("👷 Job #%d unassigned", id)
	if assignee != nil {
		heading = fmt.Sprintf("👷 Job #%d assigned to #%d", id, *assignee)
	}
	h.showOccurrence(ctx, b, chatID, id, heading)
}

// showOccurrence отправляет заголовок и карточку работы после изменения
func (h *Handlers) showOccurrence(ctx context.Context, b *bot.Bot, chatID, id int64, heading string) {
	eff, err := h.occurrenceService.Effective(ctx, id)
	if err != nil {
		// изменение уже сохранено, карточка не обязательна
		h.logger.Warn("Failed to load job after change", zap.Int64("occurrence_id", id), zap.Error(err))
		h.sendMessage(ctx, b, chatID, heading)
		return
	}
	h.sendHTML(ctx, b, chatID, heading+"\n\n"+formatting.FormatOccurrence(eff, h.loc), nil)
}
