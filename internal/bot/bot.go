package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"desk-planner/internal/logger"
)

// Bot connects the command handler to the Telegram API.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *Handler
	limiter *rate.Limiter
	logger  *zap.Logger
}

func New(token string, handler *Handler, ratePerSec int, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if ratePerSec <= 0 {
		ratePerSec = 20
	}

	log = logger.OrNop(log).Named("bot")
	log.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:     api,
		handler: handler,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec),
		logger:  log,
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Warn("handle message", zap.Error(err))
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	req := Request{From: senderOf(msg.From), Text: msg.Text}
	if msg.IsCommand() {
		req.Command = msg.Command()
		req.Args = msg.CommandArguments()
		b.logger.Info("command", zap.Int64("from", msg.From.ID), zap.String("command", req.Command))
	}

	reply, err := b.handler.Handle(ctx, req)
	if err != nil {
		b.logger.Error("command failed", zap.String("command", req.Command), zap.Error(err))
		reply = Reply{Text: "Something went wrong, please try again later."}
	}
	return b.send(ctx, msg.Chat.ID, reply)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("callback ack", zap.Error(err))
	}

	reply, err := b.handler.HandleCallback(ctx, senderOf(cb.From), cb.Data)
	if err != nil {
		return err
	}
	if reply.Text == "" {
		return nil
	}
	return b.send(ctx, cb.Message.Chat.ID, reply)
}

func (b *Bot) send(ctx context.Context, chatID int64, reply Reply) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	if len(reply.Buttons) > 0 {
		msg.ReplyMarkup = inlineKeyboard(reply.Buttons)
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := b.api.Send(msg)
	return err
}

func senderOf(u *tgbotapi.User) Sender {
	return Sender{TelegramID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.UserName}
}

func inlineKeyboard(buttons []Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, btn := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btn.Label, btn.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelDesks),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}
