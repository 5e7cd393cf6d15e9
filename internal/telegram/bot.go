package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"kondate-shopper/internal/app"
	"kondate-shopper/internal/config"
	"kondate-shopper/internal/menu"
	"kondate-shopper/internal/metrics"
	"kondate-shopper/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	batchTimeout = 5 * time.Minute
	weekDays     = 5
)

// Service is the part of app.App the bot drives.
type Service interface {
	AggregateURLs(ctx context.Context, urls []string) (app.Outcome, error)
	SaveList(ctx context.Context, req app.SaveRequest) ([]shopping.Item, error)
	GetList(ctx context.Context, weekStartDate string) (*shopping.SavedList, error)
	RecomputeSaved(ctx context.Context, weekStartDate string, activeDates []string) (app.Outcome, []shopping.Item, error)
	SetChecked(ctx context.Context, itemID string, checked bool) (*shopping.Item, error)
}

// UsageReporter provides the numbers behind /metrics.
type UsageReporter interface {
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API around the shopping list service.
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  sender
	svc     Service
	usage   UsageReporter
	cfg     *config.Config
	logger  *zap.Logger
	dataDir string
	now     func() time.Time
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, svc Service, usage UsageReporter, logger *zap.Logger) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("description", resp.Description))

	b := newBot(bot, cfg, svc, usage, logger)
	b.api = bot
	return b, nil
}

func newBot(s sender, cfg *config.Config, svc Service, usage UsageReporter, logger *zap.Logger) *Bot {
	return &Bot{
		sender:  s,
		svc:     svc,
		usage:   usage,
		cfg:     cfg,
		logger:  logger,
		dataDir: dataDir(cfg.DatabasePath),
		now:     time.Now,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("failed to parse update", zap.Error(err))
		return
	}

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From) {
			go b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil || !b.isAllowed(update.Message.From) {
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "/metrics":
		b.handleMetricsRequest(msg)
	case "/week":
		b.handleWeekRequest(msg, fields[1:])
	case "/list":
		b.handleListRequest(msg, fields[1:])
	case "/days":
		b.handleDaysRequest(msg, fields[1:])
	default:
		if urls := extractURLs(msg.Text); len(urls) > 0 {
			b.aggregateAndReply(msg.Chat.ID, urls)
			return
		}
		b.reply(msg.Chat.ID, helpText)
	}
}

const helpText = "🛒 *Kondate Shopper*\n\n" +
	"• Send menu page URLs to build a shopping list\n" +
	"• /week `[YYYYMMDD]` reads Mon-Fri of that week (default: this week)\n" +
	"• /list `YYYYMMDD` shows a saved list\n" +
	"• /days `YYYYMMDD` `YYYYMMDD`... recomputes a saved week for some days only"

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	b.handleMetricsCommand(msg.Chat.ID)
}

func (b *Bot) handleWeekRequest(msg *tgbotapi.Message, args []string) {
	week := menu.WeekStart(b.now())
	if len(args) > 0 {
		d, err := menu.ParseDate(args[0])
		if err != nil {
			b.reply(msg.Chat.ID, "❌ Dates look like `20260216`.")
			return
		}
		week = menu.WeekStart(d)
	}
	b.aggregateAndReply(msg.Chat.ID, menu.WeekURLs(b.cfg.SiteBaseURL, week, weekDays))
}

func (b *Bot) handleListRequest(msg *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /list `YYYYMMDD`")
		return
	}
	week := weekKeyOf(args[0])

	list, err := b.svc.GetList(context.Background(), week)
	if errors.Is(err, shopping.ErrListNotFound) {
		b.reply(msg.Chat.ID, fmt.Sprintf("🤷 No list saved for the week of %s.", week))
		return
	}
	if err != nil {
		b.logger.Error("failed to load list", zap.String("week", week), zap.Error(err))
		b.reply(msg.Chat.ID, "❌ Failed to load the list.")
		return
	}
	b.sendShoppingList(msg.Chat.ID, week, list.Ingredients)
}

func (b *Bot) handleDaysRequest(msg *tgbotapi.Message, args []string) {
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /days `YYYYMMDD` `YYYYMMDD`...")
		return
	}
	for _, d := range args {
		if _, err := menu.ParseDate(d); err != nil {
			b.reply(msg.Chat.ID, "❌ Dates look like `20260216`.")
			return
		}
	}
	week := weekKeyOf(args[0])

	sent, err := b.sender.Send(markdown(tgbotapi.NewMessage(msg.Chat.ID, "🔁 *Recomputing...*")))
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	out, items, err := b.svc.RecomputeSaved(ctx, week, args)
	switch {
	case errors.Is(err, shopping.ErrListNotFound):
		b.edit(msg.Chat.ID, sent.MessageID, fmt.Sprintf("🤷 No list saved for the week of %s.", week))
		return
	case errors.Is(err, app.ErrNothingToAggregate):
		b.edit(msg.Chat.ID, sent.MessageID, "🤷 None of those days has ingredients.")
		return
	case err != nil:
		b.logger.Error("recompute failed", zap.String("week", week), zap.Error(err))
		b.edit(msg.Chat.ID, sent.MessageID, "❌ Failed to recompute the list.")
		return
	}

	b.edit(msg.Chat.ID, sent.MessageID, formatMenusMarkdown(week, out.Menus, args))
	b.sendShoppingList(msg.Chat.ID, week, items)
	b.alertFallback(week, out)
}

func (b *Bot) aggregateAndReply(chatID int64, urls []string) {
	sent, err := b.sender.Send(markdown(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("🔎 *Reading %d menu pages...*\n(Scraping and building your list)", len(urls)))))
	if err != nil {
		b.logger.Warn("failed to send initial reply", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	out, err := b.svc.AggregateURLs(ctx, urls)
	week := menu.BatchWeekKey(out.Menus, b.now())

	if errors.Is(err, app.ErrNothingToAggregate) {
		text := formatMenusMarkdown(week, out.Menus, nil) + "\n🤷 No ingredients found to aggregate."
		b.edit(chatID, sent.MessageID, text)
		return
	}
	if err != nil {
		b.logger.Error("aggregation failed", zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		b.edit(chatID, sent.MessageID, fmt.Sprintf("❌ *Error building list:*\n```\n%v\n```", safeErr))
		return
	}

	activeDates := menu.SuccessDates(out.Menus)
	items, err := b.svc.SaveList(ctx, app.SaveRequest{
		WeekStartDate: week,
		Recipes:       out.Menus,
		ActiveDates:   activeDates,
		Ingredients:   out.Ingredients,
	})
	if err != nil {
		b.logger.Error("failed to save list", zap.String("week", week), zap.Error(err))
		b.edit(chatID, sent.MessageID, "❌ The list was built but could not be saved.")
		return
	}

	b.edit(chatID, sent.MessageID, formatMenusMarkdown(week, out.Menus, activeDates))
	b.sendShoppingList(chatID, week, items)
	b.alertFallback(week, out)
}

func (b *Bot) sendShoppingList(chatID int64, week string, items []shopping.Item) {
	for _, page := range paginateShoppingList(week, items) {
		msg := markdown(tgbotapi.NewMessage(chatID, page.text))
		if len(page.items) > 0 {
			msg.ReplyMarkup = checklistKeyboard(week, page.items)
		}
		if _, err := b.sender.Send(msg); err != nil {
			b.logger.Warn("failed to send shopping list", zap.String("week", week), zap.Error(err))
			return
		}
	}
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	checked, week, itemID, ok := parseCheckData(query.Data)
	if !ok {
		return
	}
	ctx := context.Background()

	item, err := b.svc.SetChecked(ctx, itemID, checked)
	if err != nil {
		b.logger.Warn("failed to toggle item", zap.String("item", itemID), zap.Error(err))
		b.sender.Request(tgbotapi.NewCallback(query.ID, "Item no longer exists, the list was saved again."))
		return
	}

	notice := "⬜ " + item.Name
	if item.IsChecked {
		notice = "✅ " + item.Name
	}
	b.sender.Request(tgbotapi.NewCallback(query.ID, notice))

	if query.Message == nil {
		return
	}
	list, err := b.svc.GetList(ctx, week)
	if err != nil {
		b.logger.Warn("failed to reload list", zap.String("week", week), zap.Error(err))
		return
	}
	page, ok := pageOf(paginateShoppingList(week, list.Ingredients), itemID)
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(query.Message.Chat.ID, query.Message.MessageID, checklistKeyboard(week, page.items))
	b.sender.Send(edit)
}

func (b *Bot) handleMetricsCommand(chatID int64) {
	usage, err := b.usage.GetDailyUsage(7)
	if err != nil {
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetricsMarkdown(usage, metrics.GetSysHealth(b.dataDir)))
}

func (b *Bot) alertFallback(week string, out app.Outcome) {
	if out.Fallback {
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Fallback list*\nWeek: %s\nEvery model failed; the list is uncategorized.", week))
	}
	if len(out.FlaggedCategories) > 0 {
		b.sendAdminAlert(fmt.Sprintf("⚠️ *Unknown categories*\nWeek: %s\n%s", week, strings.Join(out.FlaggedCategories, ", ")))
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(markdown(tgbotapi.NewMessage(chatID, text))); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.sender.Send(edit); err != nil {
		b.logger.Warn("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func markdown(msg tgbotapi.MessageConfig) tgbotapi.MessageConfig {
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}
