package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/lox/floatchat/internal/chat"
	"github.com/lox/floatchat/internal/models"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// MessageView is a chat message with its data card decoded.
type MessageView struct {
	models.ChatMessage
	Payload *chat.Payload `json:"payload,omitempty"`
}

type ChatResponse struct {
	SessionID     string        `json:"sessionId"`
	Messages      []MessageView `json:"messages"`
	SampleQueries []string      `json:"sampleQueries,omitempty"`
}

func messageView(m models.ChatMessage) (MessageView, error) {
	p, err := chat.DecodePayload(m)
	if err != nil {
		return MessageView{}, err
	}
	return MessageView{ChatMessage: m, Payload: p}, nil
}

// loadSession returns the stored session, creating it with the greeting on
// first use. Callers must hold the session's lock.
func (s *Server) loadSession(ctx context.Context, id string) (*chat.Session, error) {
	if !sessionIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: invalid session id", errBadRequest)
	}
	msgs, err := s.store.GetMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if len(msgs) > 0 {
		return chat.Restore(id, msgs), nil
	}

	sess := s.assistant.NewSession(id)
	for _, m := range sess.Messages {
		if err := s.store.InsertMessage(ctx, m); err != nil {
			return nil, fmt.Errorf("save greeting: %w", err)
		}
	}
	return sess, nil
}

func (s *Server) chatResponse(sess *chat.Session) (ChatResponse, error) {
	resp := ChatResponse{SessionID: sess.ID, Messages: make([]MessageView, 0, len(sess.Messages))}
	for _, m := range sess.Messages {
		v, err := messageView(m)
		if err != nil {
			return resp, err
		}
		resp.Messages = append(resp.Messages, v)
	}
	if !sess.Started() {
		resp.SampleQueries = chat.SampleQueries()
	}
	return resp, nil
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	defer s.chatLocks.lock(r.PathValue("session"))()

	sess, err := s.loadSession(r.Context(), r.PathValue("session"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.chatResponse(sess)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type sendRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: body must be {\"content\": \"...\"}", errBadRequest))
		return
	}

	defer s.chatLocks.lock(r.PathValue("session"))()

	ctx := r.Context()
	sess, err := s.loadSession(ctx, r.PathValue("session"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, bot, err := s.assistant.Send(ctx, sess, req.Content)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, m := range []models.ChatMessage{user, bot} {
		if err := s.store.InsertMessage(ctx, m); err != nil {
			s.writeError(w, r, fmt.Errorf("save message: %w", err))
			return
		}
	}

	uv, _ := messageView(user)
	bv, err := messageView(bot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, []MessageView{uv, bv})
}

func (s *Server) handleChatRetry(w http.ResponseWriter, r *http.Request) {
	defer s.chatLocks.lock(r.PathValue("session"))()

	ctx := r.Context()
	sess, err := s.loadSession(ctx, r.PathValue("session"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bot, err := s.assistant.Retry(ctx, sess, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.InsertMessage(ctx, bot); err != nil {
		s.writeError(w, r, fmt.Errorf("save message: %w", err))
		return
	}
	v, err := messageView(bot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (s *Server) handleChatFlag(w http.ResponseWriter, r *http.Request) {
	defer s.chatLocks.lock(r.PathValue("session"))()

	ctx := r.Context()
	sess, err := s.loadSession(ctx, r.PathValue("session"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := r.PathValue("id")
	flagged, err := sess.ToggleFlag(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.SetMessageFlag(ctx, sess.ID, id, flagged); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "flagged": flagged})
}
