package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/lox/floatchat/internal/models"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		query string
		want  Kind
	}{
		{"Show me salinity profiles near the equator", KindSalinity},
		{"SALINITY please", KindSalinity},
		{"Display temperature trends in the Pacific Ocean", KindTemperature},
		{"Find floats with recent oxygen measurements", KindBGC},
		{"Compare BGC parameters in the Arabian Sea", KindBGC},
		{"What are the nearest ARGO floats to coordinates 25.4°N?", KindLocation},
		{"location of buoys", KindLocation},
		{"salinity and temperature together", KindSalinity},
		{"hello there", KindFallback},
		{"", KindFallback},
	}

	for _, tt := range tests {
		if got := Match(tt.query); got.Kind != tt.want {
			t.Errorf("Match(%q).Kind = %s, want %s", tt.query, got.Kind, tt.want)
		}
	}
}

func TestMatch_Payloads(t *testing.T) {
	tests := []struct {
		query string
		want  *Payload
	}{
		{"salinity", &Payload{Type: KindSalinity, Count: 23, AvgValue: "35.2 PSU"}},
		{"temperature", &Payload{Type: KindTemperature, Trend: "+0.3°C/decade", Range: "18-28°C"}},
		{"oxygen", &Payload{Type: KindBGC, Floats: 78}},
		{"bgc", &Payload{Type: KindBGC, Floats: 6}},
		{"float", &Payload{Type: KindLocation, Floats: 2, Coordinates: "15.4°N, 73.8°E"}},
		{"anything else", nil},
	}

	for _, tt := range tests {
		got := Match(tt.query)
		if diff := cmp.Diff(tt.want, got.Payload); diff != "" {
			t.Errorf("Match(%q) payload (-want +got):\n%s", tt.query, diff)
		}
	}
}

func TestMatch_PayloadIsolated(t *testing.T) {
	r := Match("salinity")
	r.Payload.Count = 999
	if again := Match("salinity"); again.Payload.Count != 23 {
		t.Errorf("rule payload mutated through reply: count = %d", again.Payload.Count)
	}
}

func TestSampleQueries(t *testing.T) {
	got := SampleQueries()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	got[0] = "changed"
	if SampleQueries()[0] == "changed" {
		t.Error("SampleQueries should return a copy")
	}
}

type stubResponder struct {
	text  string
	err   error
	calls int
}

func (s *stubResponder) Respond(context.Context, string) (string, error) {
	s.calls++
	return s.text, s.err
}

func newTestAssistant(fallback Responder) *Assistant {
	a := NewAssistant(fallback, nil)
	a.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	n := 0
	a.newID = func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
	return a
}

func TestAssistant_ReplyFallback(t *testing.T) {
	ctx := context.Background()

	stub := &stubResponder{text: "From the model"}
	a := newTestAssistant(stub)
	if got := a.Reply(ctx, "hello"); got.Text != "From the model" || got.Kind != KindFallback {
		t.Errorf("Reply = %+v", got)
	}
	if got := a.Reply(ctx, "salinity"); got.Kind != KindSalinity {
		t.Errorf("matched query should not reach responder: %+v", got)
	}
	if stub.calls != 1 {
		t.Errorf("responder calls = %d, want 1", stub.calls)
	}

	failing := newTestAssistant(&stubResponder{err: errors.New("boom")})
	if got := failing.Reply(ctx, "hello"); got.Text != fallbackText {
		t.Errorf("failed responder text = %q, want canned fallback", got.Text)
	}
}

func TestAssistant_Session(t *testing.T) {
	ctx := context.Background()
	a := newTestAssistant(nil)

	s := a.NewSession("s1")
	if len(s.Messages) != 1 || s.Messages[0].Content != Greeting {
		t.Fatalf("new session messages = %+v", s.Messages)
	}
	if s.Started() {
		t.Error("session with only greeting should not be started")
	}

	if _, _, err := a.Send(ctx, s, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank Send err = %v, want ErrEmptyMessage", err)
	}
	if len(s.Messages) != 1 {
		t.Errorf("blank Send appended messages")
	}

	user, bot, err := a.Send(ctx, s, "  Show salinity  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if user.Content != "Show salinity" || user.SessionID != "s1" {
		t.Errorf("user message = %+v", user)
	}
	if bot.Kind != string(KindSalinity) || bot.Sender != models.SenderBot {
		t.Errorf("bot message = %+v", bot)
	}
	p, err := DecodePayload(bot)
	if err != nil || p == nil || p.Count != 23 {
		t.Errorf("DecodePayload = %+v, %v", p, err)
	}
	if !s.Started() {
		t.Error("session should be started after Send")
	}

	retried, err := a.Retry(ctx, s, bot.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Content != bot.Content || retried.ID == bot.ID {
		t.Errorf("retried = %+v", retried)
	}
	if len(s.Messages) != 4 {
		t.Errorf("len(messages) = %d, want 4", len(s.Messages))
	}

	if _, err := a.Retry(ctx, s, s.Messages[0].ID); !errors.Is(err, ErrNoSourceQuery) {
		t.Errorf("retry greeting err = %v, want ErrNoSourceQuery", err)
	}
	if _, err := a.Retry(ctx, s, user.ID); !errors.Is(err, ErrNotBotMessage) {
		t.Errorf("retry user message err = %v, want ErrNotBotMessage", err)
	}
	if _, err := a.Retry(ctx, s, "nope"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("retry missing err = %v, want ErrMessageNotFound", err)
	}
}

func TestSession_ToggleFlag(t *testing.T) {
	s := Restore("s1", []models.ChatMessage{
		{ID: "u1", Sender: models.SenderUser, Content: "hi"},
		{ID: "b1", Sender: models.SenderBot, Content: "hello"},
	})

	on, err := s.ToggleFlag("b1")
	if err != nil || !on {
		t.Fatalf("first toggle = %v, %v", on, err)
	}
	off, err := s.ToggleFlag("b1")
	if err != nil || off {
		t.Fatalf("second toggle = %v, %v", off, err)
	}
	if _, err := s.ToggleFlag("u1"); !errors.Is(err, ErrNotBotMessage) {
		t.Errorf("toggle user message err = %v", err)
	}
	if _, err := s.ToggleFlag("zz"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("toggle missing err = %v", err)
	}
}

func TestSourceQuery_NearestPrevious(t *testing.T) {
	s := Restore("s1", []models.ChatMessage{
		{ID: "u1", Sender: models.SenderUser, Content: "first"},
		{ID: "b1", Sender: models.SenderBot},
		{ID: "u2", Sender: models.SenderUser, Content: "second"},
		{ID: "b2", Sender: models.SenderBot},
	})

	for id, want := range map[string]string{"b1": "first", "b2": "second"} {
		got, err := s.SourceQuery(id)
		if err != nil || got != want {
			t.Errorf("SourceQuery(%s) = %q, %v; want %q", id, got, err, want)
		}
	}
}
