package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
)

func TestDecodeTurn(t *testing.T) {
	ev := chat.TurnEvent{
		ConversationID:     3,
		UserID:             1,
		UserMessageID:      10,
		AssistantMessageID: 11,
		UserContent:        "hello",
		CreatedAt:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, ok := DecodeTurn(body)
	if !ok {
		t.Fatalf("expected event to decode")
	}
	if got.ConversationID != 3 || got.UserContent != "hello" || !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Fatalf("unexpected event %+v", got)
	}

	if _, ok := DecodeTurn([]byte("not json")); ok {
		t.Fatalf("malformed body must be rejected")
	}
	if _, ok := DecodeTurn([]byte(`{"user_content":"x"}`)); ok {
		t.Fatalf("event without conversation must be rejected")
	}
}

func TestRetryCount(t *testing.T) {
	cases := []struct {
		headers amqp.Table
		want    int
	}{
		{nil, 0},
		{amqp.Table{}, 0},
		{amqp.Table{"x-retries": int32(2)}, 2},
		{amqp.Table{"x-retries": int64(5)}, 5},
		{amqp.Table{"x-retries": "nope"}, 0},
	}
	for _, tc := range cases {
		if got := RetryCount(tc.headers); got != tc.want {
			t.Fatalf("RetryCount(%v) = %d, want %d", tc.headers, got, tc.want)
		}
	}
}

func TestSettle(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name         string
		decoded      bool
		err          error
		shuttingDown bool
		attempt      int
		want         outcome
	}{
		{"malformed", false, nil, false, 0, outcomeDeadLetter},
		{"handled", true, nil, false, 0, outcomeAck},
		{"handled during shutdown", true, nil, true, 0, outcomeAck},
		{"first failure", true, boom, false, 0, outcomeRetry},
		{"last retry", true, boom, false, 2, outcomeRetry},
		{"retries exhausted", true, boom, false, 3, outcomeDeadLetter},
		{"cancelled by shutdown", true, context.Canceled, true, 0, outcomeRequeue},
		{"cancelled after retries", true, context.Canceled, true, 3, outcomeRequeue},
	}
	for _, tc := range cases {
		if got := settle(tc.decoded, tc.err, tc.shuttingDown, tc.attempt, 3); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}
