package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/finexa/fxarb/internal/models"
)

// NotificationService pushes high-profit opportunities to a Telegram chat.
// Delivery is fire and forget: every failure is logged and swallowed so a
// disconnected chat never aborts a scan cycle. Without a bot token the
// service is a no-op.
type NotificationService struct {
	bot          *bot.Bot
	chatID       string
	minProfitPct float64
	titler       cases.Caser
	log          *logrus.Logger
}

func NewNotificationService(botToken, chatID string, minProfitPct float64, log *logrus.Logger) *NotificationService {
	if log == nil {
		log = logrus.New()
	}
	var b *bot.Bot
	if botToken != "" {
		var err error
		b, err = bot.New(botToken)
		if err != nil {
			log.WithError(err).Warn("Telegram bot init failed, notifications disabled")
			b = nil
		}
	}
	return &NotificationService{
		bot:          b,
		chatID:       chatID,
		minProfitPct: minProfitPct,
		titler:       cases.Title(language.English),
		log:          log,
	}
}

// Enabled reports whether a bot and chat are configured.
func (ns *NotificationService) Enabled() bool {
	return ns.bot != nil && ns.chatID != ""
}

// NotifyOpportunities pushes the opportunities above the profit threshold.
func (ns *NotificationService) NotifyOpportunities(ctx context.Context, opportunities []*models.ArbitrageOpportunity) {
	if !ns.Enabled() {
		return
	}

	var lines []string
	for _, opp := range opportunities {
		if opp.ProfitPercentage < ns.minProfitPct {
			continue
		}
		lines = append(lines, ns.formatOpportunity(opp))
	}
	if len(lines) == 0 {
		return
	}

	text := "Arbitrage opportunities:\n" + strings.Join(lines, "\n")
	if _, err := ns.bot.SendMessage(ctx, &bot.SendMessageParams{ChatID: ns.chatID, Text: text}); err != nil {
		ns.log.WithError(err).Warn("Failed to send opportunity notification")
	}
}

func (ns *NotificationService) formatOpportunity(opp *models.ArbitrageOpportunity) string {
	kind := ns.titler.String(string(opp.Kind))
	if opp.Kind == models.KindSpatial && len(opp.CurrencyPairs) > 0 {
		return fmt.Sprintf("%s %s: buy %s @ %.5f, sell %s @ %.5f (%.4f%%)",
			kind, opp.CurrencyPairs[0], opp.BuyBroker, opp.BuyRate, opp.SellBroker, opp.SellRate, opp.ProfitPercentage)
	}
	broker := ""
	if len(opp.Brokers) > 0 {
		broker = " via " + opp.Brokers[0]
	}
	return fmt.Sprintf("%s %s%s (%.4f%%)",
		kind, strings.Join(opp.CurrencyPairs, " / "), broker, opp.ProfitPercentage)
}
