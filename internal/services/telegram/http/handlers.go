// Package http provides the Telegram webhook endpoint
package http

import (
	"context"
	"crypto/subtle"
	stdhttp "net/http"

	"habitreward/internal/modkit/httpkit"
	perr "habitreward/internal/platform/errors"
	"habitreward/internal/platform/logger"
	"habitreward/internal/platform/net/http/bind"
	"habitreward/internal/services/telegram/domain"
)

// Sender delivers the reply back into the chat
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Handlers carries the webhook dependencies
type Handlers struct {
	Handler   domain.HandlerPort
	Transport Sender
	// Secret is compared against X-Telegram-Bot-Api-Secret-Token, empty
	// disables the check
	Secret string
}

// Register mounts the webhook route
func (h *Handlers) Register(r httpkit.Router) {
	httpkit.Post(r, "/", h.receive)
}

// receive acknowledges every authenticated update with 200 so the upstream
// never retries, failures are reported in chat or logged
func (h *Handlers) receive(r *stdhttp.Request) (any, error) {
	if h.Secret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Secret)) != 1 {
			return nil, perr.Newf(perr.ErrorCodeAuthRequired, "bad webhook secret")
		}
	}

	// updates carry far more fields than the handled subset, so unknown
	// fields must pass
	in, err := bind.ParseJSON[domain.Update](r, bind.JSONOptions{MaxBytes: 1 << 20})
	if err != nil {
		// a malformed update will never parse on retry either, ack it
		logger.C(r.Context()).Warn().Err(err).Msg("webhook payload rejected")
		return map[string]bool{"ok": true}, nil
	}

	reply := h.Handler.HandleUpdate(r.Context(), in)
	if reply != nil && h.Transport != nil {
		if err := h.Transport.SendMessage(r.Context(), reply.ChatID, reply.Text); err != nil {
			logger.C(r.Context()).Warn().Err(err).
				Int64("chat_id", reply.ChatID).
				Int64("update_id", in.UpdateID).
				Msg("webhook reply delivery failed")
		}
	}
	return map[string]bool{"ok": true}, nil
}
