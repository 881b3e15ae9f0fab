package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bakkerme/uwuzu-watch/internal/config"
	"github.com/bakkerme/uwuzu-watch/internal/outputs/email"
	emailmock "github.com/bakkerme/uwuzu-watch/internal/outputs/email/mock"
	"github.com/bakkerme/uwuzu-watch/internal/uwuzu"
	uwuzumock "github.com/bakkerme/uwuzu-watch/internal/uwuzu/mock"
	"github.com/bakkerme/uwuzu-watch/internal/walk"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewPostHandlerSendsSinglePostDigest(t *testing.T) {
	sender := &emailmock.Sender{}
	handler := newPostHandler(email.NewDigest(), sender, &config.Email{
		To:   "me@example.com",
		From: "watch@example.com",
	})

	err := handler(context.Background(), uwuzu.Post{
		ID:      "p1",
		Text:    "hello **world**",
		Account: uwuzu.User{ID: "u1", Username: "alice"},
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sent))
	}
	if sent[0].To != "me@example.com" || sent[0].From != "watch@example.com" {
		t.Fatalf("envelope = %+v", sent[0])
	}
	if sent[0].Subject != "New post from alice" {
		t.Fatalf("subject = %q", sent[0].Subject)
	}
	if !strings.Contains(sent[0].Body, "<strong>world</strong>") {
		t.Fatalf("body not rendered: %q", sent[0].Body)
	}
}

func TestNewPostHandlerWithoutEmailOnlyLogs(t *testing.T) {
	handler := newPostHandler(nil, nil, nil)
	if err := handler(context.Background(), uwuzu.Post{ID: "p1"}); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
}

func TestRunBackfillEmailsCollectedPosts(t *testing.T) {
	source := &uwuzumock.Client{Pages: [][]uwuzu.Post{
		{{ID: "p2", Text: "newer", Account: uwuzu.User{Username: "alice"}}},
		{{ID: "p1", Text: "older", Account: uwuzu.User{Username: "bob"}}},
	}}
	walker := walk.New(source, walk.Config{PageSize: 1, PageDelay: 1})
	sender := &emailmock.Sender{}

	err := runBackfill(context.Background(), testLogger(), walker, email.NewDigest(), sender, &config.Email{
		To:      "me@example.com",
		Subject: "Catch-up",
	})
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected 1 digest, got %d", len(sent))
	}
	if sent[0].Subject != "Catch-up" {
		t.Fatalf("subject = %q", sent[0].Subject)
	}
	if !strings.Contains(sent[0].Body, "alice") || !strings.Contains(sent[0].Body, "bob") {
		t.Fatalf("digest missing posts: %q", sent[0].Body)
	}
}
