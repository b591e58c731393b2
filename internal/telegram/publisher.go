package telegram

import (
	"fmt"
	"strings"

	"portfolioPlot/internal/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Telegram rejects photo captions longer than this.
const maxCaption = 1024

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Publisher posts rendered charts to one chat.
type Publisher struct {
	api    sender
	chatID int64
}

func NewPublisher(token string, chatID int64) (*Publisher, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info().Str("bot", api.Self.UserName).Int64("chat_id", chatID).Msg("telegram: publisher ready")
	return &Publisher{api: api, chatID: chatID}, nil
}

// Publish sends every chart as a photo. The first one carries the commentary
// under its title; the rest carry only their titles.
func (p *Publisher) Publish(charts []report.Chart, commentary string) error {
	if len(charts) == 0 {
		return fmt.Errorf("no charts to publish")
	}
	for i, c := range charts {
		photo := tgbotapi.NewPhoto(p.chatID, tgbotapi.FileBytes{Name: c.Name, Bytes: c.PNG})
		photo.Caption = c.Title
		if i == 0 && commentary != "" {
			photo.Caption = truncate(c.Title+"\n\n"+commentary, maxCaption)
		}
		if _, err := p.api.Send(photo); err != nil {
			return fmt.Errorf("failed to send %s: %w", c.Name, err)
		}
		log.Debug().Str("chart", c.Name).Int64("chat_id", p.chatID).Msg("telegram: chart sent")
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
