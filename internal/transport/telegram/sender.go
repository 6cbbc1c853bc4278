// Package telegram delivers messages to Telegram chats through a bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	kit "nftbot/internal/transport"
)

// Target is a chat and an optional forum topic.
type Target struct {
	ChatID   int64
	ThreadID int
}

// ParseTarget reads "chat_id" or "chat_id:thread_id".
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	chat, thread, hasThread := strings.Cut(s, ":")
	id, err := strconv.ParseInt(strings.TrimSpace(chat), 10, 64)
	if err != nil || id == 0 {
		return Target{}, fmt.Errorf("invalid telegram chat %q", s)
	}
	t := Target{ChatID: id}
	if hasThread {
		th, err := strconv.Atoi(strings.TrimSpace(thread))
		if err != nil || th < 0 {
			return Target{}, fmt.Errorf("invalid telegram thread in %q", s)
		}
		t.ThreadID = th
	}
	return t, nil
}

func (t Target) String() string {
	if t.ThreadID != 0 {
		return strconv.FormatInt(t.ChatID, 10) + ":" + strconv.Itoa(t.ThreadID)
	}
	return strconv.FormatInt(t.ChatID, 10)
}

// Config configures the bot. URL is only set in tests.
type Config struct {
	Token   string
	URL     string
	Timeout time.Duration
}

// Bot wraps a send-only telebot instance shared by all targets.
type Bot struct {
	bot *tele.Bot
}

// NewBot creates an offline bot: no getMe call, no polling.
func NewBot(cfg Config) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     cfg.URL,
		Token:   cfg.Token,
		Client:  &http.Client{Timeout: timeout},
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Bot{bot: b}, nil
}

// Sender returns a destination for target.
func (b *Bot) Sender(target Target) *Sender {
	return &Sender{bot: b.bot, to: target}
}

// Sender sends HTML text with the image as link preview.
type Sender struct {
	bot *tele.Bot
	to  Target
}

func (s *Sender) Name() string { return "telegram " + s.to.String() }

func (s *Sender) Send(ctx context.Context, msg kit.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts := &tele.SendOptions{
		ParseMode: tele.ModeHTML,
		ThreadID:  s.to.ThreadID,
	}
	if msg.ImageURL == "" {
		opts.DisableWebPagePreview = true
	}
	if _, err := s.bot.Send(&tele.Chat{ID: s.to.ChatID}, FormatHTML(msg), opts); err != nil {
		return fmt.Errorf("%w: %s: %v", kit.ErrDeliveryFailed, s.Name(), err)
	}
	return nil
}

// textLimit bounds the visible text; Telegram counts it after entity parsing.
const textLimit = 4000

// FormatHTML renders a message for Telegram's HTML parse mode. Markdown bold
// markers ("**x**") in the description become <b>x</b>. Only the plain
// description is shortened, so tags and entities are never cut.
func FormatHTML(msg kit.Message) string {
	var b strings.Builder
	if msg.ImageURL != "" {
		// Invisible anchor so the client previews the image.
		b.WriteString(`<a href="` + html.EscapeString(msg.ImageURL) + `">&#8205;</a>`)
	}
	title := "<b>" + html.EscapeString(msg.Title) + "</b>"
	if msg.URL != "" {
		title = `<a href="` + html.EscapeString(msg.URL) + `">` + title + `</a>`
	}
	b.WriteString(title)
	if msg.Author.Name != "" {
		b.WriteString("\n<i>" + html.EscapeString(msg.Author.Name) + "</i>")
	}
	budget := textLimit - utf8.RuneCountInString(msg.Title) - utf8.RuneCountInString(msg.Author.Name) - 4
	if desc := truncateRunes(msg.Description, budget); desc != "" {
		b.WriteString("\n\n")
		b.WriteString(boldMarkdown(html.EscapeString(desc)))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func boldMarkdown(s string) string {
	parts := strings.Split(s, "**")
	if len(parts) < 3 {
		return s
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			// Odd separators open, even ones close; an unmatched trailing one stays literal.
			if i%2 == 1 && i == len(parts)-1 {
				b.WriteString("**")
			} else if i%2 == 1 {
				b.WriteString("<b>")
			} else {
				b.WriteString("</b>")
			}
		}
		b.WriteString(p)
	}
	return b.String()
}
