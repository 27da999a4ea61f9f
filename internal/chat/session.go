package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lox/floatchat/internal/models"
)

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotBotMessage   = errors.New("only assistant messages can be flagged or retried")
	ErrNoSourceQuery   = errors.New("no earlier user message to retry")
)

// Session is the explicit state of one chat view: its messages in order.
type Session struct {
	ID       string
	Messages []models.ChatMessage
}

// Restore rebuilds a session from persisted messages.
func Restore(id string, msgs []models.ChatMessage) *Session {
	return &Session{ID: id, Messages: msgs}
}

// Started reports whether the user has said anything yet.
func (s *Session) Started() bool {
	for _, m := range s.Messages {
		if m.Sender == models.SenderUser {
			return true
		}
	}
	return false
}

func (s *Session) index(id string) int {
	for i, m := range s.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// SourceQuery returns the nearest user message preceding the bot message id.
func (s *Session) SourceQuery(id string) (string, error) {
	idx := s.index(id)
	if idx == -1 {
		return "", ErrMessageNotFound
	}
	if s.Messages[idx].Sender != models.SenderBot {
		return "", ErrNotBotMessage
	}
	for i := idx - 1; i >= 0; i-- {
		if s.Messages[i].Sender == models.SenderUser {
			return s.Messages[i].Content, nil
		}
	}
	return "", ErrNoSourceQuery
}

// ToggleFlag flips the flag on a bot message and returns the new value.
func (s *Session) ToggleFlag(id string) (bool, error) {
	idx := s.index(id)
	if idx == -1 {
		return false, ErrMessageNotFound
	}
	if s.Messages[idx].Sender != models.SenderBot {
		return false, ErrNotBotMessage
	}
	s.Messages[idx].Flagged = !s.Messages[idx].Flagged
	return s.Messages[idx].Flagged, nil
}

func (s *Session) append(m models.ChatMessage) models.ChatMessage {
	m.SessionID = s.ID
	s.Messages = append(s.Messages, m)
	return m
}

func userMessage(id, content string, at time.Time) (models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.ChatMessage{}, ErrEmptyMessage
	}
	return models.ChatMessage{ID: id, Sender: models.SenderUser, Content: content, CreatedAt: at}, nil
}

func botMessage(id string, r Reply, at time.Time) (models.ChatMessage, error) {
	m := models.ChatMessage{ID: id, Sender: models.SenderBot, Content: r.Text, Kind: string(r.Kind), CreatedAt: at}
	if r.Payload != nil {
		b, err := json.Marshal(r.Payload)
		if err != nil {
			return m, fmt.Errorf("marshal payload: %w", err)
		}
		m.Payload = string(b)
	}
	return m, nil
}

// DecodePayload returns the data card stored on a bot message, if any.
func DecodePayload(m models.ChatMessage) (*Payload, error) {
	if m.Payload == "" {
		return nil, nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(m.Payload), &p); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", m.ID, err)
	}
	return &p, nil
}
