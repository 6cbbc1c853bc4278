// Package discord delivers messages to chat webhooks that accept Discord's
// embed payload.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	kit "nftbot/internal/transport"
)

// Sender posts one embed per message to a webhook URL.
type Sender struct {
	url        string
	httpClient *http.Client
}

// NewSender creates a webhook sender. A nil client gets a 30s timeout.
func NewSender(webhookURL string, httpClient *http.Client) (*Sender, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if !isValidURL(webhookURL) {
		return nil, fmt.Errorf("invalid webhook URL: %q (must be a valid HTTP/HTTPS URL)", maskURL(webhookURL))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Sender{url: webhookURL, httpClient: httpClient}, nil
}

// Name is the masked webhook URL.
func (s *Sender) Name() string { return "webhook " + maskURL(s.url) }

type payload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Author      *embedAuthor `json:"author,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

func buildPayload(msg kit.Message) payload {
	e := embed{
		Title:       msg.Title,
		URL:         msg.URL,
		Description: msg.Description,
		Color:       msg.Color,
	}
	if msg.Author.Name != "" {
		e.Author = &embedAuthor{Name: msg.Author.Name, URL: msg.Author.URL, IconURL: msg.Author.IconURL}
	}
	if msg.ImageURL != "" {
		e.Image = &embedImage{URL: msg.ImageURL}
	}
	return payload{Embeds: []embed{e}}
}

// Send posts the embed. Only HTTP 200 counts as delivered.
func (s *Sender) Send(ctx context.Context, msg kit.Message) error {
	jsonData, err := json.Marshal(buildPayload(msg))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	// wait=true makes the endpoint answer 200 with the created message instead of 204.
	target := withWait(s.url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", kit.ErrDeliveryFailed, maskURL(s.url), redact(err, s.url))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned status %d", kit.ErrDeliveryFailed, maskURL(s.url), resp.StatusCode)
	}
	return nil
}

// isValidURL checks if a string is a valid HTTP/HTTPS URL.
func isValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func withWait(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Get("wait") == "" {
		q.Set("wait", "true")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// maskURL hides the webhook token (everything after the first 30 chars).
func maskURL(u string) string {
	if len(u) > 50 {
		return u[:30] + "..." + u[len(u)-4:]
	}
	return u
}

// redact strips the raw URL from transport errors (url.Error embeds it).
func redact(err error, raw string) string {
	return strings.ReplaceAll(err.Error(), withWait(raw), maskURL(raw))
}
