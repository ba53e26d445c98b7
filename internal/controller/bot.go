package controller

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/controller/handlers"
)

type BotController struct {
	bot      *bot.Bot
	handlers *handlers.Handlers
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, cmdHandlers *handlers.Handlers, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		handlers: cmdHandlers,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	h := c.handlers

	// Просмотр
	c.command("start", h.HandleStart)
	c.command("help", h.HandleHelp)
	c.command("agenda", h.HandleAgenda)
	c.command("ics", h.HandleICS)
	c.command("job", h.HandleJob)
	c.command("series", h.HandleSeries)
	c.command("preview", h.HandlePreview)

	// Команды диспетчера
	c.command("generate", h.HandleGenerate, h.AdminOnly)
	c.command("sweep", h.HandleSweep, h.AdminOnly)
	c.command("begin", h.HandleBegin, h.AdminOnly)
	c.command("done", h.HandleDone, h.AdminOnly)
	c.command("restore", h.HandleRestore, h.AdminOnly)
	c.command("cancel_job", h.HandleCancelJob, h.AdminOnly)
	c.command("deactivate", h.HandleDeactivate, h.AdminOnly)
	c.command("reactivate", h.HandleReactivate, h.AdminOnly)
	c.command("new_series", h.HandleNewSeries, h.AdminOnly)
	c.command("edit_series", h.HandleEditSeries, h.AdminOnly)
	c.command("delete_series", h.HandleDeleteSeries, h.AdminOnly)
	c.command("override", h.HandleOverride, h.AdminOnly)
	c.command("assign", h.HandleAssign, h.AdminOnly)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cancel_", bot.MatchTypePrefix, h.HandleCancelCallback, h.AdminOnly)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "delete_", bot.MatchTypePrefix, h.HandleDeleteCallback, h.AdminOnly)

	// Устанавливаем меню команд
	return c.setCommands(ctx)
}

func (c *BotController) command(name string, f bot.HandlerFunc, m ...bot.Middleware) {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, name, bot.MatchTypeCommandStartOnly, f, m...)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "agenda", Description: "📅 Upcoming jobs"},
		{Command: "ics", Description: "🗓 Export jobs as .ics"},
		{Command: "job", Description: "🔧 Show a job"},
		{Command: "series", Description: "🔁 Show a job series"},
		{Command: "preview", Description: "👀 Preview a recurrence rule"},
		{Command: "generate", Description: "➕ Generate jobs (dispatcher)"},
		{Command: "cancel_job", Description: "❌ Cancel a job (dispatcher)"},
		{Command: "new_series", Description: "🆕 Create a series (dispatcher)"},
		{Command: "edit_series", Description: "✏️ Edit a series (dispatcher)"},
		{Command: "help", Description: "❓ Help"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
