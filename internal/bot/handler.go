// Package bot is the Telegram transport: it routes updates to the ledger
// pipeline and renders one reply per handled message.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ledgerbot/internal/classifier"
	"ledgerbot/internal/core"
	"ledgerbot/internal/dedup"
	"ledgerbot/internal/i18n"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/ratelimit"
	"ledgerbot/internal/middleware/trace"
	"ledgerbot/internal/services"
)

const callbackShowHelp = "SHOW_HELP"

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	api        Sender
	classifier classifier.Classifier
	resolver   *services.Resolver
	stats      *services.StatsAggregator
	balances   ledger.BalanceStore
	dedup      dedup.Filter
	limiter    *ratelimit.Limiter
	drain      time.Duration
	tracer     *trace.Tracer
	texts      *i18n.Texts
	logger     *log.Logger
	events     *log.StructuredLogger
}

type Deps struct {
	API        Sender
	Classifier classifier.Classifier
	Resolver   *services.Resolver
	Stats      *services.StatsAggregator
	Balances   ledger.BalanceStore
	Dedup      dedup.Filter
	// Limiter caps classified messages per user; nil means unlimited.
	Limiter *ratelimit.Limiter
	Texts   *i18n.Texts
	Logger  *log.Logger
	// DrainTimeout bounds work on updates still in flight at shutdown.
	DrainTimeout time.Duration
}

func NewHandler(d Deps) (*Handler, error) {
	switch {
	case d.API == nil:
		return nil, errors.New("bot: nil API")
	case d.Classifier == nil:
		return nil, errors.New("bot: nil classifier")
	case d.Resolver == nil || d.Stats == nil || d.Balances == nil:
		return nil, errors.New("bot: ledger services are required")
	case d.Texts == nil:
		return nil, errors.New("bot: nil texts")
	}
	if d.Dedup == nil {
		d.Dedup = dedup.NewMemoryFilter(dedup.DefaultWindow)
	}
	if d.Logger == nil {
		d.Logger = log.Discard()
	}
	if d.DrainTimeout <= 0 {
		d.DrainTimeout = DefaultDrainTimeout
	}
	logger := d.Logger.WithComponent(log.ComponentBot)
	return &Handler{
		api:        d.API,
		classifier: d.Classifier,
		resolver:   d.Resolver,
		stats:      d.Stats,
		balances:   d.Balances,
		dedup:      d.Dedup,
		limiter:    d.Limiter,
		tracer:     trace.NewTracer(logger),
		texts:      d.Texts,
		logger:     logger,
		events:     log.NewStructuredLogger(logger),
		drain:      d.DrainTimeout,
	}, nil
}

// HandleUpdate never panics; a failure inside one update is logged and the
// process keeps serving.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.ErrorContext(ctx, "Recovered panic while handling update",
				log.FieldUpdateID, upd.UpdateID,
				log.FieldError, fmt.Sprint(r),
				log.FieldErrorType, log.ErrorTypeInternal)
		}
	}()

	if upd.CallbackQuery != nil {
		h.handleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.Message != nil {
		h.handleMessage(ctx, upd.Message)
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	defer h.api.Request(tgbotapi.NewCallback(q.ID, ""))

	if q.Data == callbackShowHelp && q.Message != nil && q.Message.Chat != nil {
		h.reply(ctx, q.Message.Chat.ID, h.texts.Help, nil)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	key := dedup.Key(msg.Chat.ID, msg.MessageID)
	if !h.dedup.ShouldProcess(ctx, key) {
		h.events.LogDuplicate(ctx, key)
		return
	}

	chatID := msg.Chat.ID
	userID := strconv.FormatInt(msg.From.ID, 10)
	h.events.LogMessageReceived(ctx, userID, chatID, msg.MessageID, msg.Command())

	if _, err := h.balances.EnsureBalance(ctx, userID); err != nil {
		h.storeFailure(ctx, chatID, userID, err)
		return
	}

	if msg.IsCommand() {
		h.handleCommand(ctx, msg, userID)
		return
	}

	switch strings.ToLower(text) {
	case "help", "menu", "commands":
		h.reply(ctx, chatID, h.texts.Help, nil)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		h.logger.InfoContext(ctx, "Rate limit exceeded", log.FieldUserID, userID)
		h.reply(ctx, chatID, h.texts.RateLimited, nil)
		return
	}

	intent, err := h.classifier.Classify(ctx, text)
	if err != nil {
		h.logger.WarnContext(ctx, "Classification failed",
			log.FieldUserID, userID,
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeClassification)
		intent = core.Intent{Kind: core.IntentUnrecognized}
	}

	res, err := h.resolver.Resolve(ctx, userID, intent, text)
	if err != nil {
		h.storeFailure(ctx, chatID, userID, err)
		return
	}
	h.reply(ctx, chatID, h.renderResult(res), nil)
}

func (h *Handler) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID string) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(h.texts.HelpButton, callbackShowHelp),
			),
		)
		h.reply(ctx, chatID, h.texts.Welcome, kb)

	case "balance":
		b, err := h.resolver.ShowBalance(ctx, userID)
		if err != nil {
			h.storeFailure(ctx, chatID, userID, err)
			return
		}
		h.reply(ctx, chatID, h.renderBalance(b), nil)

	case "reset":
		res, err := h.resolver.Reset(ctx, userID)
		if err != nil {
			h.storeFailure(ctx, chatID, userID, err)
			return
		}
		h.reply(ctx, chatID, h.renderResult(res), nil)

	case "help":
		h.reply(ctx, chatID, h.texts.Help, nil)

	case "stats":
		report, err := h.stats.ComputeStats(ctx, userID, msg.CommandArguments())
		if errors.Is(err, core.ErrInvalidDateRange) {
			h.reply(ctx, chatID, h.texts.StatsUsage, nil)
			return
		}
		if err != nil {
			h.storeFailure(ctx, chatID, userID, err)
			return
		}
		h.reply(ctx, chatID, h.renderStats(report), nil)

	default:
		h.logger.DebugContext(ctx, "Ignoring unknown command", log.FieldCommand, msg.Command())
	}
}

func (h *Handler) storeFailure(ctx context.Context, chatID int64, userID string, err error) {
	h.events.LogError(ctx, "Ledger operation failed", err, log.ComponentStorage, log.OpResolve,
		log.NewFields().WithErrorType(log.ErrorTypeDatabase).WithMessage(userID, chatID, 0))
	h.reply(ctx, chatID, h.texts.GenericError, nil)
}

// reply sends text as Markdown and falls back to plain text when Telegram
// rejects the markup.
func (h *Handler) reply(ctx context.Context, chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.api.Send(msg); err != nil {
		h.logger.WarnContext(ctx, "Markdown reply failed, retrying as plain text",
			log.FieldChatID, chatID, log.FieldError, err.Error())
		msg.ParseMode = ""
		if _, err := h.api.Send(msg); err != nil {
			h.logger.ErrorContext(ctx, "Failed to send reply",
				log.FieldChatID, chatID,
				log.FieldOperation, log.OpReply,
				log.FieldError, err.Error(),
				log.FieldErrorType, log.ErrorTypeNetwork)
		}
	}
}
