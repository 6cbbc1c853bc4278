package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "nftbot/internal/transport"
)

func sampleMessage() kit.Message {
	return kit.Message{
		Title:       "Bunny #7",
		URL:         "https://pancakeswap.finance/nfts/collections/0xcoll/7",
		Description: "fast\n\n**A Bunny just got sold!**",
		Author:      kit.Author{Name: "NFT Sold", URL: "https://pancakeswap.finance/", IconURL: "https://icon"},
		Color:       0x03b2f8,
		ImageURL:    "https://img/7.png",
	}
}

func TestSendPostsEmbed(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))
	defer srv.Close()

	s, err := NewSender(srv.URL+"/api/webhooks/1/token", nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), sampleMessage()))

	embeds, _ := got["embeds"].([]any)
	require.Len(t, embeds, 1)
	e := embeds[0].(map[string]any)
	assert.Equal(t, "Bunny #7", e["title"])
	assert.EqualValues(t, 0x03b2f8, e["color"])
	assert.Equal(t, "NFT Sold", e["author"].(map[string]any)["name"])
	assert.Equal(t, "https://img/7.png", e["image"].(map[string]any)["url"])
}

func TestSendNon200IsFailure(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusTooManyRequests, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		s, err := NewSender(srv.URL, nil)
		require.NoError(t, err)
		err = s.Send(context.Background(), sampleMessage())
		require.ErrorIs(t, err, kit.ErrDeliveryFailed, "status %d", status)
		srv.Close()
	}
}

func TestSendKeepsExistingQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("thread_id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewSender(srv.URL+"/hook?thread_id=42", nil)
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), sampleMessage()))
}

func TestNewSenderRejectsInvalidURL(t *testing.T) {
	for _, u := range []string{"", "hooks.example/abc", "ftp://example.com/x"} {
		_, err := NewSender(u, nil)
		assert.Error(t, err, u)
	}
}

func TestNameIsMasked(t *testing.T) {
	secret := "https://discord.com/api/webhooks/123456789/abcdefghijklmnopqrstuvwxyz0123456789"
	s, err := NewSender(secret, nil)
	require.NoError(t, err)
	assert.False(t, strings.Contains(s.Name(), "abcdefghijklmnop"))
}
