package app

import (
	"fmt"
	"net/http"

	"nftbot/internal/config"
	"nftbot/internal/notifier"
	kit "nftbot/internal/transport"
	"nftbot/internal/transport/discord"
	"nftbot/internal/transport/telegram"
)

// mapNotifierConfig builds the destinations of both kinds. Webhooks come
// before Telegram chats; each list keeps its configured order.
func mapNotifierConfig(rt config.Runtime, hc *http.Client) (notifier.Config, error) {
	var bot *telegram.Bot
	if rt.TelegramToken != "" && (len(rt.Sales.TelegramChats) > 0 || len(rt.Listings.TelegramChats) > 0) {
		b, err := telegram.NewBot(telegram.Config{
			Token:   rt.TelegramToken,
			URL:     rt.TelegramAPIURL,
			Timeout: rt.HTTPTimeout,
		})
		if err != nil {
			return notifier.Config{}, fmt.Errorf("telegram: %w", err)
		}
		bot = b
	}

	sales, err := senders("sales", rt.Sales, hc, bot)
	if err != nil {
		return notifier.Config{}, err
	}
	listings, err := senders("listings", rt.Listings, hc, bot)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{Sales: sales, Listings: listings, DryRun: rt.DryRun}, nil
}

func senders(path string, d config.DestinationsConfig, hc *http.Client, bot *telegram.Bot) ([]kit.Sender, error) {
	out := make([]kit.Sender, 0, len(d.Webhooks)+len(d.TelegramChats))
	for i, u := range d.Webhooks {
		s, err := discord.NewSender(u, hc)
		if err != nil {
			return nil, fmt.Errorf("%s.webhooks[%d]: %w", path, i, err)
		}
		out = append(out, s)
	}
	for i, chat := range d.TelegramChats {
		target, err := telegram.ParseTarget(chat)
		if err != nil {
			return nil, fmt.Errorf("%s.telegram_chats[%d]: %w", path, i, err)
		}
		if bot == nil {
			return nil, fmt.Errorf("%s.telegram_chats[%d]: telegram token is not set", path, i)
		}
		out = append(out, bot.Sender(target))
	}
	return out, nil
}
