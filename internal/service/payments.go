package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"questboard/pkg/logger"

	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const goldPackPayloadPrefix = "GOLD_PACK:"

type PaymentConfig struct {
	BotToken    string
	Debug       bool
	GoldPerStar int64
}

// PaymentService sells gold packs for Telegram Stars. Successful payments are credited to
// the ledger as PURCHASE entries; Telegram has already verified them.
type PaymentService struct {
	bot    *tgbotapi.BotAPI
	ledger *LedgerService
	cfg    PaymentConfig
}

func NewPaymentService(config PaymentConfig, ledger *LedgerService) (*PaymentService, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize bot: %w", err)
	}

	bot.Debug = config.Debug
	if config.GoldPerStar <= 0 {
		config.GoldPerStar = 1
	}

	return &PaymentService{
		bot:    bot,
		ledger: ledger,
		cfg:    config,
	}, nil
}

// GoldPackPayload encodes the gold amount into the invoice payload.
func GoldPackPayload(gold int64) string {
	return goldPackPayloadPrefix + strconv.FormatInt(gold, 10)
}

func ParseGoldPackPayload(payload string) (int64, error) {
	if !strings.HasPrefix(payload, goldPackPayloadPrefix) {
		return 0, fmt.Errorf("unknown invoice payload %q", payload)
	}
	gold, err := strconv.ParseInt(strings.TrimPrefix(payload, goldPackPayloadPrefix), 10, 64)
	if err != nil || gold <= 0 {
		return 0, fmt.Errorf("invalid gold amount in payload %q", payload)
	}
	return gold, nil
}

// StarsFor returns the price in Stars of a gold pack, rounded up.
func (s *PaymentService) StarsFor(gold int64) int {
	return int((gold + s.cfg.GoldPerStar - 1) / s.cfg.GoldPerStar)
}

func (s *PaymentService) HandlePreCheckoutQuery(query *tgbotapi.PreCheckoutQuery) error {
	_, err := ParseGoldPackPayload(query.InvoicePayload)
	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 err == nil,
	}
	if err != nil {
		answer.ErrorMessage = "This gold pack is no longer available"
	}

	_, sendErr := s.bot.Request(answer)
	return sendErr
}

func (s *PaymentService) HandleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) error {
	payment := msg.SuccessfulPayment

	gold, err := ParseGoldPackPayload(payment.InvoicePayload)
	if err != nil {
		return err
	}

	if _, err := s.ledger.Purchase(ctx, msg.From.ID, gold, payment.TelegramPaymentChargeID); err != nil {
		return fmt.Errorf("failed to credit purchase: %w", err)
	}

	confirmation := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("Thank you! %d gold has been added to your balance.", gold))
	if _, err := s.bot.Send(confirmation); err != nil {
		logger.Logger().Warn("failed to send payment confirmation", zap.Error(err))
	}
	return nil
}

// StartPaymentListener consumes bot updates until ctx is cancelled.
func (s *PaymentService) StartPaymentListener(ctx context.Context) error {
	log := logger.Logger()

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := s.bot.GetUpdatesChan(updateConfig)
	defer s.bot.StopReceivingUpdates()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.PreCheckoutQuery != nil:
				if err := s.HandlePreCheckoutQuery(update.PreCheckoutQuery); err != nil {
					log.Error("failed to handle pre-checkout query", zap.Error(err))
				}

			case update.Message != nil && update.Message.SuccessfulPayment != nil:
				if err := s.HandleSuccessfulPayment(ctx, update.Message); err != nil {
					log.Error("failed to handle successful payment",
						zap.Int64("telegram_id", update.Message.From.ID),
						zap.Error(err))
				}
			}

		case <-ctx.Done():
			return nil
		}
	}
}

// CreateGoldInvoiceLink returns a Telegram Stars invoice link for a gold pack.
func (s *PaymentService) CreateGoldInvoiceLink(gold int64) (string, error) {
	if gold <= 0 {
		return "", ErrInvalidAmount
	}

	params := tgbotapi.Params{
		"title":       fmt.Sprintf("%d gold", gold),
		"description": "Gold for posting quests",
		"payload":     GoldPackPayload(gold),
		"currency":    "XTR",
	}
	prices := []tgbotapi.LabeledPrice{
		{Label: "Gold pack", Amount: s.StarsFor(gold)},
	}
	if err := params.AddInterface("prices", prices); err != nil {
		return "", fmt.Errorf("failed to encode prices: %w", err)
	}

	resp, err := s.bot.MakeRequest("createInvoiceLink", params)
	if err != nil {
		return "", fmt.Errorf("failed to create invoice link: %w", err)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to parse invoice link: %w", err)
	}
	return link, nil
}
