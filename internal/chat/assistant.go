package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lox/floatchat/internal/metrics"
	"github.com/lox/floatchat/internal/models"
)

// Responder writes free-form text for queries no rule matches.
type Responder interface {
	Respond(ctx context.Context, query string) (string, error)
}

// Assistant answers queries from the rule table and appends the exchange to
// sessions.
type Assistant struct {
	fallback Responder
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

// NewAssistant creates an assistant. fallback may be nil, in which case
// unmatched queries get the canned fallback text.
func NewAssistant(fallback Responder, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Reply answers a single query.
func (a *Assistant) Reply(ctx context.Context, query string) Reply {
	r := Match(query)
	if r.Kind == KindFallback && a.fallback != nil {
		text, err := a.fallback.Respond(ctx, query)
		switch {
		case err != nil:
			a.logger.Warn("chat: fallback responder failed", zap.Error(err))
		case text != "":
			r.Text = text
		}
	}
	metrics.ChatReplies.WithLabelValues(string(r.Kind)).Inc()
	return r
}

// NewSession starts a session holding only the greeting.
func (a *Assistant) NewSession(id string) *Session {
	s := &Session{ID: id}
	s.append(models.ChatMessage{
		ID:        a.newID(),
		Sender:    models.SenderBot,
		Content:   Greeting,
		Kind:      string(KindFallback),
		CreatedAt: a.now().UTC(),
	})
	return s
}

// Send appends the user's message and the assistant's reply to s and returns both.
func (a *Assistant) Send(ctx context.Context, s *Session, content string) (models.ChatMessage, models.ChatMessage, error) {
	user, err := userMessage(a.newID(), content, a.now().UTC())
	if err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, err
	}
	bot, err := botMessage(a.newID(), a.Reply(ctx, user.Content), a.now().UTC())
	if err != nil {
		return models.ChatMessage{}, models.ChatMessage{}, err
	}
	return s.append(user), s.append(bot), nil
}

// Retry answers the query behind bot message id again and appends a new bot
// message. The earlier reply is kept.
func (a *Assistant) Retry(ctx context.Context, s *Session, id string) (models.ChatMessage, error) {
	query, err := s.SourceQuery(id)
	if err != nil {
		return models.ChatMessage{}, err
	}
	bot, err := botMessage(a.newID(), a.Reply(ctx, query), a.now().UTC())
	if err != nil {
		return models.ChatMessage{}, fmt.Errorf("retry %s: %w", id, err)
	}
	return s.append(bot), nil
}
