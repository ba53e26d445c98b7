package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/apperr"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
)

// Префиксы callback данных
const (
	cancelOnePrefix  = "cancel_one:"
	cancelAllPrefix  = "cancel_all:"
	cancelKeepPrefix = "cancel_keep:"
	deleteYesPrefix  = "delete_yes:"
	deleteNoPrefix   = "delete_no:"
)

const (
	defaultAgendaDays  = 7
	defaultICSDays     = 30
	maxListDays        = 366
	defaultPreviewSize = 10
	previewHorizon     = 12
)

// sendError отправляет сообщение об ошибке и логирует если не удалось
func (h *Handlers) sendError(ctx context.Context, b *bot.Bot, chatID int64, err error) {
	if !apperr.Is(err, apperr.ErrValidation) && !apperr.Is(err, apperr.ErrNotFound) &&
		!apperr.Is(err, apperr.ErrInvalidTransition) && !apperr.Is(err, apperr.ErrTimeZone) {
		h.logger.Error("Request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.sendMessage(ctx, b, chatID, apperr.UserMessage(err))
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendHTML отправляет HTML сообщение, клавиатура необязательна
func (h *Handlers) sendHTML(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// commandArgs возвращает слова после команды: "/generate 5 3" -> ["5", "3"]
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

// commandTail возвращает всё после слова команды
func commandTail(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexAny(text, " \t\n")
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("id", "%q is not an id", raw)
	}
	return id, nil
}

var errMissingID = apperr.Validation("id", "missing, e.g. /series 42")

// requireID разбирает единственный аргумент-id команды
func requireID(text string) (int64, error) {
	args := commandArgs(text)
	if len(args) == 0 {
		return 0, errMissingID
	}
	return parseID(args[0])
}

// optionalPositive разбирает args[i] или возвращает def
func optionalPositive(args []string, i int, def, max int, field string) (int, error) {
	if len(args) <= i {
		return def, nil
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		return 0, apperr.Validationf(field, "%q is not a positive number", args[i])
	}
	if n > max {
		return 0, apperr.Validationf(field, "at most %d", max)
	}
	return n, nil
}

// previewArgs - разобранная команда
// "/preview FREQ=WEEKLY;BYDAY=TU | 2024-01-02 09:00 | America/New_York | 5"
type previewArgs struct {
	Rule   recurrence.Rule
	Anchor civil.DateTime
	Zone   string
	Count  int
}

func parsePreviewArgs(text string) (previewArgs, error) {
	parts := strings.Split(commandTail(text), "|")
	if len(parts) < 3 || len(parts) > 4 {
		return previewArgs{}, apperr.Validation("preview",
			"use /preview <rule> | <YYYY-MM-DD HH:MM> | <zone> [| count]")
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	rule, err := recurrence.Parse(parts[0])
	if err != nil {
		return previewArgs{}, err
	}

	anchor, err := time.Parse("2006-01-02 15:04", parts[1])
	if err != nil {
		return previewArgs{}, apperr.Validationf("start", "%q is not YYYY-MM-DD HH:MM", parts[1])
	}

	if parts[2] == "" {
		return previewArgs{}, apperr.Validation("timezone", "required")
	}

	count := defaultPreviewSize
	if len(parts) == 4 {
		count, err = optionalPositive(parts[3:], 0, defaultPreviewSize, recurrence.MaxPreviewCount, "count")
		if err != nil {
			return previewArgs{}, err
		}
	}

	return previewArgs{
		Rule:   rule,
		Anchor: civil.DateTimeOf(anchor),
		Zone:   parts[2],
		Count:  count,
	}, nil
}

// parseCallback делит "cancel_one:42" на префикс и id
func parseCallback(data string) (string, int64, error) {
	for _, prefix := range []string{cancelOnePrefix, cancelAllPrefix, cancelKeepPrefix, deleteYesPrefix, deleteNoPrefix} {
		if strings.HasPrefix(data, prefix) {
			id, err := parseID(strings.TrimPrefix(data, prefix))
			if err != nil {
				return "", 0, err
			}
			return prefix, id, nil
		}
	}
	return "", 0, fmt.Errorf("unknown callback %q", data)
}

// dayRange возвращает [сегодня 00:00, сегодня+days 00:00) в loc
func dayRange(now time.Time, days int, loc *time.Location) (time.Time, time.Time) {
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return from, from.AddDate(0, 0, days)
}
