// Package client implements the outbound Telegram Bot API transport
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	perr "habitreward/internal/platform/errors"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	sendTimeout    = 10 * time.Second
)

// Client talks to the Telegram Bot API. It satisfies the Sender seams of the
// auth and webhook services
type Client struct {
	token string
	base  string
	http  *http.Client
}

// Option customizes the client
type Option func(*Client)

// WithBaseURL points the client at a different API host, used by tests
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = base }
}

// WithHTTPClient swaps the underlying http client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New constructs a client for the given bot token
func New(token string, opts ...Option) *Client {
	c := &Client{
		token: token,
		base:  defaultBaseURL,
		http:  &http.Client{Timeout: sendTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type sendMessageRequest struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts a plain-text message to a chat
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "encode sendMessage")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.base, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnknown, "build sendMessage request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "telegram sendMessage")
	}
	defer resp.Body.Close() //nolint:errcheck

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "decode sendMessage response")
	}
	if !out.OK {
		return perr.Newf(perr.ErrorCodeUnavailable, "telegram sendMessage: %d %s", out.ErrorCode, out.Description)
	}
	return nil
}
