package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "nftbot/internal/transport"
)

func TestParseTarget(t *testing.T) {
	tg, err := ParseTarget("-1001234:7")
	require.NoError(t, err)
	assert.Equal(t, Target{ChatID: -1001234, ThreadID: 7}, tg)
	assert.Equal(t, "-1001234:7", tg.String())

	tg, err = ParseTarget(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, Target{ChatID: 42}, tg)

	for _, bad := range []string{"", "abc", "0", "42:x", "42:-1"} {
		_, err := ParseTarget(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatHTML(t *testing.T) {
	out := FormatHTML(kit.Message{
		Title:       "Bunny <#7>",
		URL:         "https://market/7",
		Description: "desc\n\n**A Bunny just got sold!**\n\n**Seller**: 0xs",
		Author:      kit.Author{Name: "NFT Sold"},
		ImageURL:    "https://img/7.png",
	})
	assert.True(t, strings.HasPrefix(out, `<a href="https://img/7.png">`))
	assert.Contains(t, out, `<a href="https://market/7"><b>Bunny &lt;#7&gt;</b></a>`)
	assert.Contains(t, out, "<i>NFT Sold</i>")
	assert.Contains(t, out, "<b>A Bunny just got sold!</b>")
	assert.Contains(t, out, "<b>Seller</b>: 0xs")
}

func TestFormatHTMLTruncatesPlainText(t *testing.T) {
	desc := "**" + strings.Repeat("a & b ", 2000) + "**"
	out := FormatHTML(kit.Message{Title: "Bunny #7", Author: kit.Author{Name: "NFT Sold"}, Description: desc})

	require.True(t, strings.HasSuffix(out, "…"))
	assert.Equal(t, strings.Count(out, "&"), strings.Count(out, "&amp;"), "entities stay whole")
	assert.Equal(t, strings.Count(out, "<b>"), strings.Count(out, "</b>"), "tags stay balanced")

	visible := html.UnescapeString(strings.NewReplacer("<b>", "", "</b>", "", "<i>", "", "</i>", "").Replace(out))
	assert.LessOrEqual(t, utf8.RuneCountInString(visible), textLimit)
}

func TestBoldMarkdownUnmatched(t *testing.T) {
	assert.Equal(t, "<b>a</b> b **c", boldMarkdown("**a** b **c"))
	assert.Equal(t, "plain", boldMarkdown("plain"))
}

func TestSenderSend(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"group"}}}`))
	}))
	defer srv.Close()

	bot, err := NewBot(Config{Token: "test-token", URL: srv.URL})
	require.NoError(t, err)
	s := bot.Sender(Target{ChatID: 42, ThreadID: 7})
	assert.Equal(t, "telegram 42:7", s.Name())

	require.NoError(t, s.Send(context.Background(), kit.Message{Title: "Bunny #7", ImageURL: "https://img/7.png"}))
	assert.Equal(t, "42", fmt.Sprint(got["chat_id"]))
	assert.Equal(t, "HTML", fmt.Sprint(got["parse_mode"]))
}

func TestSenderSendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	bot, err := NewBot(Config{Token: "test-token", URL: srv.URL})
	require.NoError(t, err)
	err = bot.Sender(Target{ChatID: 42}).Send(context.Background(), kit.Message{Title: "x"})
	require.ErrorIs(t, err, kit.ErrDeliveryFailed)
}

func TestNewBotRequiresToken(t *testing.T) {
	_, err := NewBot(Config{})
	require.Error(t, err)
}
