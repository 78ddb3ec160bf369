package http

import (
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	phttp "habitreward/internal/platform/net/http"
	"habitreward/internal/services/telegram/domain"

	"github.com/go-chi/chi/v5"
)

type fakeHandler struct {
	got   []domain.Update
	reply *domain.Reply
}

func (f *fakeHandler) HandleUpdate(_ context.Context, u domain.Update) *domain.Reply {
	f.got = append(f.got, u)
	return f.reply
}

type fakeSender struct {
	chatIDs []int64
	texts   []string
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	f.chatIDs = append(f.chatIDs, chatID)
	f.texts = append(f.texts, text)
	return nil
}

func newWebhookServer(t *testing.T, h *Handlers) *httptest.Server {
	t.Helper()
	mux := chi.NewRouter()
	h.Register(phttp.AdaptChi(mux))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// realUpdate mirrors what the Bot API actually delivers: plenty of fields
// beyond the handled subset
const realUpdate = `{
	"update_id": 901,
	"message": {
		"message_id": 42,
		"from": {"id": 100, "is_bot": false, "first_name": "Ada", "username": "ada", "language_code": "en"},
		"chat": {"id": 100, "first_name": "Ada", "type": "private"},
		"date": 1724457600,
		"text": "/help",
		"entities": [{"offset": 0, "length": 5, "type": "bot_command"}]
	}
}`

func postUpdate(t *testing.T, url, secret, body string) *stdhttp.Response {
	t.Helper()
	req, err := stdhttp.NewRequest(stdhttp.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestReceiveToleratesExtraFields(t *testing.T) {
	fh := &fakeHandler{reply: &domain.Reply{ChatID: 100, Text: "hi"}}
	fs := &fakeSender{}
	srv := newWebhookServer(t, &Handlers{Handler: fh, Transport: fs})

	resp := postUpdate(t, srv.URL+"/", "", realUpdate)
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body["ok"] {
		t.Errorf("body = %v", body)
	}

	if len(fh.got) != 1 {
		t.Fatalf("handled %d updates, want 1", len(fh.got))
	}
	u := fh.got[0]
	if u.UpdateID != 901 || u.Message == nil || u.Message.Text != "/help" || u.Message.From.ID != 100 {
		t.Errorf("parsed update = %+v", u)
	}
	if len(fs.texts) != 1 || fs.texts[0] != "hi" || fs.chatIDs[0] != 100 {
		t.Errorf("sent = %v to %v", fs.texts, fs.chatIDs)
	}
}

func TestReceiveChecksSecret(t *testing.T) {
	fh := &fakeHandler{}
	srv := newWebhookServer(t, &Handlers{Handler: fh, Secret: "hush"})

	resp := postUpdate(t, srv.URL+"/", "wrong", realUpdate)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != stdhttp.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", resp.StatusCode)
	}
	if len(fh.got) != 0 {
		t.Errorf("handler ran despite bad secret")
	}

	resp = postUpdate(t, srv.URL+"/", "hush", realUpdate)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != stdhttp.StatusOK {
		t.Errorf("right secret: status = %d, want 200", resp.StatusCode)
	}
	if len(fh.got) != 1 {
		t.Errorf("handler did not run with the right secret")
	}
}

func TestReceiveAcksMalformedPayload(t *testing.T) {
	fh := &fakeHandler{}
	srv := newWebhookServer(t, &Handlers{Handler: fh})

	resp := postUpdate(t, srv.URL+"/", "", `{"update_id": "not a number"}`)
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != stdhttp.StatusOK {
		t.Errorf("status = %d, want 200 so the upstream stops retrying", resp.StatusCode)
	}
	if len(fh.got) != 0 {
		t.Errorf("handler ran on a malformed payload")
	}
}

func TestReceiveSkipsSendWhenNoReply(t *testing.T) {
	fs := &fakeSender{}
	srv := newWebhookServer(t, &Handlers{Handler: &fakeHandler{}, Transport: fs})

	resp := postUpdate(t, srv.URL+"/", "", realUpdate)
	resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != stdhttp.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(fs.texts) != 0 {
		t.Errorf("sent %v for a nil reply", fs.texts)
	}
}
