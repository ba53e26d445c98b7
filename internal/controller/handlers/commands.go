package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/controller/formatting"
	"github.com/Freeeeeet/servicejobs/internal/controller/keyboard"
	"github.com/Freeeeeet/servicejobs/internal/export"
	"github.com/Freeeeeet/servicejobs/internal/service"
)

const helpText = "📚 Commands:\n\n" +
	"/agenda [days] - Upcoming jobs\n" +
	"/ics [days] - Export jobs as a calendar file\n" +
	"/job <id> - Show one job\n" +
	"/series <id> - Show a job series\n" +
	"/preview <rule> | <YYYY-MM-DD HH:MM> | <zone> [| count] - Preview a rule\n\n" +
	"Dispatchers:\n" +
	"/generate <id> [months] [max] - Generate jobs for a series\n" +
	"/sweep - Generate jobs for all active series\n" +
	"/begin <id>, /done <id>, /restore <id> - Change job status\n" +
	"/cancel_job <id> - Cancel a job\n" +
	"/deactivate <id>, /reactivate <id> - Pause or resume a series\n" +
	"/new_series <customer_id> | <title> | <YYYY-MM-DD HH:MM> | <minutes> | <zone> | <rule> [| priority] - Create a series\n" +
	"/edit_series <id> | field=value | ... - Edit a series (title, description, priority, date, time, minutes, zone, rule, cost, assignee)\n" +
	"/delete_series <id> - Delete a series with its jobs\n" +
	"/override <id> | title=... | description=... | cost=... - Change one job, an empty value clears\n" +
	"/assign <id> <assignee_id|none> - Assign a job"

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	name := "there"
	if update.Message.From != nil && update.Message.From.FirstName != "" {
		name = update.Message.From.FirstName
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"👋 Hi, %s!\n\nThis bot shows and manages recurring service jobs.\n\n%s", name, helpText))
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText)
}

// HandleSeries показывает карточку серии
func (h *Handlers) HandleSeries(ctx context.Context, b *bot.Bot, update *models.Update) {
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

	h.sendHTML(ctx, b, chatID, formatting.FormatSeries(series), nil)
}

// HandleJob показывает работу с учётом переопределений
func (h *Handlers) HandleJob(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	eff, err := h.occurrenceService.Effective(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendHTML(ctx, b, chatID, formatting.FormatOccurrence(eff, h.loc), nil)
}

// HandleGenerate генерирует работы одной серии: /generate <id> [months] [max]
func (h *Handlers) HandleGenerate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.sendError(ctx, b, chatID, errMissingID)
		return
	}
	id, err := parseID(args[0])
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	months, err := optionalPositive(args, 1, 0, 24, "months")
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}
	maxOccurrences, err := optionalPositive(args, 2, 0, 1000, "max")
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	res, err := h.seriesService.Generate(ctx, service.GenerateRequest{
		SeriesID:       id,
		MonthsAhead:    months,
		MaxOccurrences: maxOccurrences,
	})
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, formatting.FormatGeneration(res))
}

// HandleSweep генерирует работы для всех активных серий
func (h *Handlers) HandleSweep(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	sum, err := h.seriesService.GenerateAll(ctx)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(
		"✅ Sweep done in %s\n\n🔁 Series: %d\n➕ Created: %d\n⏭ Existing: %d\n⚠️ Failed: %d\n❌ Series errors: %d",
		sum.Duration.Round(time.Millisecond), sum.Series, sum.Created, sum.Skipped, sum.Failed, sum.Errors))
}

// HandlePreview показывает даты правила, ничего не сохраняя
func (h *Handlers) HandlePreview(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	args, err := parsePreviewArgs(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if _, err := h.tz.Location(args.Zone); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	starts, err := h.previewer.Preview(args.Rule, args.Anchor, previewHorizon, args.Count)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	rows := make([]formatting.PreviewRow, 0, len(starts))
	for _, dt := range starts {
		instant, err := h.tz.ToInstant(dt.Date, dt.Time, args.Zone)
		if err != nil {
			h.sendError(ctx, b, chatID, err)
			return
		}
		rows = append(rows, formatting.PreviewRow{Local: dt, UTC: instant})
	}

	h.sendHTML(ctx, b, chatID, formatting.FormatPreview(args.Rule, args.Anchor.Time, args.Zone, rows), nil)
}

// HandleAgenda выводит работы на ближайшие дни: /agenda [days]
func (h *Handlers) HandleAgenda(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	days, err := optionalPositive(commandArgs(update.Message.Text), 0, defaultAgendaDays, maxListDays, "days")
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	from, to := dayRange(h.now(), days, h.loc)
	views, err := h.occurrenceService.Calendar(ctx, from, to)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendHTML(ctx, b, chatID, formatting.FormatAgenda(views, h.loc), nil)
}

// HandleICS отправляет ближайшие работы файлом .ics: /ics [days]
func (h *Handlers) HandleICS(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	days, err := optionalPositive(commandArgs(update.Message.Text), 0, defaultICSDays, maxListDays, "days")
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	now := h.now()
	from, to := dayRange(now, days, h.loc)
	views, err := h.occurrenceService.Calendar(ctx, from, to)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, "Service jobs", views, now); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	_, err = b.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID: chatID,
		Document: &models.InputFileUpload{
			Filename: fmt.Sprintf("jobs-%s.ics", from.Format("2006-01-02")),
			Data:     &buf,
		},
		Caption: fmt.Sprintf("📅 %d jobs, %s - %s", len(views),
			from.Format("02.01.2006"), to.AddDate(0, 0, -1).Format("02.01.2006")),
	})
	if err != nil {
		h.logger.Error("Failed to send calendar", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// HandleBegin переводит работу в статус in progress
func (h *Handlers) HandleBegin(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.changeStatus(ctx, b, update, h.occurrenceService.Start, "🔧 Job #%d started")
}

// HandleDone отмечает работу выполненной
func (h *Handlers) HandleDone(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.changeStatus(ctx, b, update, h.occurrenceService.Complete, "✅ Job #%d completed")
}

// HandleRestore возвращает отменённую работу
func (h *Handlers) HandleRestore(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.changeStatus(ctx, b, update, h.occurrenceService.Restore, "♻️ Job #%d restored")
}

func (h *Handlers) changeStatus(
	ctx context.Context,
	b *bot.Bot,
	update *models.Update,
	apply func(ctx context.Context, id int64) error,
	done string,
) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if err := apply(ctx, id); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf(done, id))
}

// HandleCancelJob спрашивает, отменить одну работу или все следующие
func (h *Handlers) HandleCancelJob(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	eff, err := h.occurrenceService.Effective(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	kb := keyboard.NewBuilder().
		Row(keyboard.Button("❌ Only this", fmt.Sprintf("%s%d", cancelOnePrefix, id))).
		Row(keyboard.Button("⏭ This and all future", fmt.Sprintf("%s%d", cancelAllPrefix, id))).
		Row(keyboard.Button("↩️ Keep", fmt.Sprintf("%s%d", cancelKeepPrefix, id))).
		Build()

	h.sendHTML(ctx, b, chatID, formatting.FormatOccurrence(eff, h.loc)+"\n\nCancel this job?", kb)
}

// HandleDeactivate приостанавливает серию, созданные работы остаются
func (h *Handlers) HandleDeactivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	if err := h.seriesService.Deactivate(ctx, id); err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendMessage(ctx, b, chatID, fmt.Sprintf("⏸ Series #%d deactivated. Existing jobs are kept.", id))
}

// HandleReactivate возобновляет серию и заполняет окно
func (h *Handlers) HandleReactivate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	id, err := requireID(update.Message.Text)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	out, err := h.seriesService.Reactivate(ctx, id)
	if err != nil {
		h.sendError(ctx, b, chatID, err)
		return
	}

	h.sendHTML(ctx, b, chatID, formatting.FormatOutcome(out, fmt.Sprintf("Series #%d reactivated", id)), nil)
}
