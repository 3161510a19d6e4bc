package support

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/scanearn/coinvault/internal/apperror"
	"github.com/scanearn/coinvault/internal/clock"
	"github.com/scanearn/coinvault/internal/logging"
	"github.com/scanearn/coinvault/internal/notification"
)

func TestSendAndReplyBuildThreads(t *testing.T) {
	clk := clock.NewFixed(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	notes := &notification.Recorder{}
	svc := NewService(NewMemoryRepository(), notes, clk, logging.Discard())
	ctx := context.Background()

	sent, err := svc.Send(ctx, "u1", "  payment not received for TXN1 ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent.Message.Body != "payment not received for TXN1" || sent.Message.Author != AuthorUser {
		t.Fatalf("unexpected message: %+v", sent.Message)
	}
	if sent.Suggestion != waitForConfirmation {
		t.Fatalf("unexpected suggestion: %q", sent.Suggestion)
	}

	clk.Advance(time.Minute)
	if _, err := svc.Send(ctx, "u2", "hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	clk.Advance(time.Minute)
	reply, err := svc.Reply(ctx, "admin1", "u1", "Credited, please check your balance")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.Author != AuthorAdmin || reply.AdminID != "admin1" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	thread, _ := svc.Messages(ctx, "u1")
	if len(thread) != 2 || thread[0].Author != AuthorUser || thread[1].Author != AuthorAdmin {
		t.Fatalf("unexpected thread: %+v", thread)
	}

	threads, _ := svc.Threads(ctx)
	if len(threads) != 2 || threads[0].UserID != "u1" || threads[0].Messages != 2 || threads[0].LastAuthor != AuthorAdmin {
		t.Fatalf("unexpected threads: %+v", threads)
	}

	msgs := notes.Messages()
	if len(msgs) != 1 || msgs[0].Kind != notification.KindSupportReply || msgs[0].Destination != "u1" {
		t.Fatalf("unexpected notifications: %+v", msgs)
	}
}

func TestSendRejectsEmptyAndOversized(t *testing.T) {
	svc := NewService(NewMemoryRepository(), nil, nil, logging.Discard())
	ctx := context.Background()

	if _, err := svc.Send(ctx, "u1", "   "); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Send(ctx, "u1", strings.Repeat("a", maxBodyLength+1)); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Reply(ctx, "admin", "", "hi"); !errors.Is(err, apperror.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSuggest(t *testing.T) {
	cases := map[string]string{
		"My withdrawal pending since morning": waitForConfirmation,
		"Hi there":                            intents[8].answer,
		"this is within limits?":              fallbackAnswer,
		"what is my BALANCE":                  intents[7].answer,
		"Thanks a lot":                        intents[9].answer,
	}
	for msg, want := range cases {
		if got := Suggest(msg); got != want {
			t.Fatalf("Suggest(%q) = %q, want %q", msg, got, want)
		}
	}
}
