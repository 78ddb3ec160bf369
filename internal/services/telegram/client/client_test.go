package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "habitreward/internal/platform/errors"
)

func TestSendMessage(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody sendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(apiResponse{OK: true})
	}))
	defer srv.Close()

	c := New("test-token", WithBaseURL(srv.URL))
	if err := c.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.ChatID != 42 || gotBody.Text != "hello" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiResponse{OK: false, ErrorCode: 400, Description: "chat not found"})
	}))
	defer srv.Close()

	c := New("test-token", WithBaseURL(srv.URL))
	err := c.SendMessage(context.Background(), 42, "hello")
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Errorf("got %v, want UNAVAILABLE", err)
	}
}

func TestSendMessageUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New("test-token", WithBaseURL(srv.URL))
	if err := c.SendMessage(context.Background(), 42, "hello"); err == nil {
		t.Fatal("want error for closed server")
	}
}
