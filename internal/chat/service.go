// Package chat is the service layer a transport handler calls into for
// POST /chat and POST /chat/stream: it enforces session ownership, builds
// the conversation-history sliding window, runs the Agent Graph,
// and persists the resulting user/assistant turns, so one chat call
// always leaves exactly two new messages in history regardless of which
// transport made it.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/finqa/ragqa/internal/agentgraph"
	"github.com/finqa/ragqa/internal/sessions"
	"github.com/finqa/ragqa/pkg/models"
)

// Grapher is the subset of agentgraph.Graph the service depends on.
type Grapher interface {
	Run(ctx context.Context, state *agentgraph.AgentState) (*agentgraph.Output, error)
}

// Service composes the Session Store and the Agent Graph for one chat
// request, honoring ownership and the history window.
type Service struct {
	Sessions   *sessions.OwnedStore
	Graph      Grapher
	MessageCap int
	TokenCap   int
}

// NewService builds a Service. messageCap/tokenCap of 0 fall back to
// sessions.DefaultHistoryMessageCap/DefaultHistoryTokenCap.
func NewService(store *sessions.OwnedStore, graph Grapher, messageCap, tokenCap int) *Service {
	return &Service{Sessions: store, Graph: graph, MessageCap: messageCap, TokenCap: tokenCap}
}

// ErrMessageTooLong is returned when a query exceeds the HTTP surface's
// documented 4000-char cap; the service enforces it so every
// transport gets the same validation without duplicating it.
var ErrMessageTooLong = errors.New("chat: message exceeds 4000 characters")

const maxMessageLength = 4000

// Send runs one non-streaming chat turn: it loads (or lazily creates) the
// session, builds the conversation window, runs the Agent Graph, then
// appends the user message and the assistant's response to history. A
// sessionID for an existing session owned by a different user fails with
// sessions.ErrForbidden before any graph work happens.
func (s *Service) Send(ctx context.Context, userID, sessionID, query string) (*agentgraph.Output, error) {
	if len(query) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if _, err := s.Sessions.GetOrCreate(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	history, err := sessions.BuildConversationWindow(ctx, &userScopedStore{inner: s.Sessions, userID: userID}, sessionID, s.MessageCap, s.TokenCap)
	if err != nil {
		return nil, err
	}

	state := agentgraph.NewState(query, sessionID, userID, history)
	out, err := s.Graph.Run(ctx, state)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.Sessions.AppendMessage(ctx, sessionID, userID, &models.Message{
		Role:      models.RoleUser,
		Content:   query,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	confidence := out.Confidence
	if err := s.Sessions.AppendMessage(ctx, sessionID, userID, &models.Message{
		Role:       models.RoleAssistant,
		Content:    out.Message,
		Confidence: &confidence,
		Escalated:  out.Escalated,
		CreatedAt:  now.Add(time.Millisecond),
	}); err != nil {
		return nil, err
	}

	out.SessionID = sessionID
	return out, nil
}

// Emitter is the subset of streaming.Emitter SendStream needs. Declared
// locally so this package doesn't import internal/streaming.
type Emitter interface {
	Chunk(text string)
	Final(out *agentgraph.Output)
}

// SendStream runs one chat turn the same way Send does, except the
// generate node's text deltas are forwarded to emitter.Chunk as they
// arrive, and emitter.Final is called exactly once with the completed
// Output — including on a generation failure, where Final still carries
// the escalated/escalation_reason fields alongside whatever partial text
// was already streamed. The user/assistant turns are persisted the same
// as Send regardless of how generation went.
func (s *Service) SendStream(ctx context.Context, userID, sessionID, query string, emitter Emitter) (*agentgraph.Output, error) {
	if len(query) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if _, err := s.Sessions.GetOrCreate(ctx, sessionID, userID); err != nil {
		return nil, err
	}

	history, err := sessions.BuildConversationWindow(ctx, &userScopedStore{inner: s.Sessions, userID: userID}, sessionID, s.MessageCap, s.TokenCap)
	if err != nil {
		return nil, err
	}

	state := agentgraph.NewState(query, sessionID, userID, history)
	state.Stream = emitter.Chunk

	out, err := s.Graph.Run(ctx, state)
	if err != nil {
		emitter.Final(nil)
		return nil, err
	}
	out.SessionID = sessionID
	emitter.Final(out)

	now := time.Now().UTC()
	if err := s.Sessions.AppendMessage(ctx, sessionID, userID, &models.Message{
		Role:      models.RoleUser,
		Content:   query,
		CreatedAt: now,
	}); err != nil {
		return nil, err
	}

	confidence := out.Confidence
	if err := s.Sessions.AppendMessage(ctx, sessionID, userID, &models.Message{
		Role:       models.RoleAssistant,
		Content:    out.Message,
		Confidence: &confidence,
		Escalated:  out.Escalated,
		CreatedAt:  now.Add(time.Millisecond),
	}); err != nil {
		return nil, err
	}

	return out, nil
}

// ListSessions returns userID's sessions, paginated.
func (s *Service) ListSessions(ctx context.Context, userID string, page, pageSize int) ([]*models.Session, models.Pagination, error) {
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	if page < 1 {
		page = 1
	}
	return s.Sessions.List(ctx, userID, sessions.ListOptions{Limit: pageSize, Offset: (page - 1) * pageSize})
}

// History returns sessionID's full message log, enforcing ownership.
func (s *Service) History(ctx context.Context, userID, sessionID string) ([]*models.Message, error) {
	return s.Sessions.GetHistory(ctx, sessionID, userID, 0)
}

// DeleteSession hard-deletes sessionID (cascading to its messages),
// enforcing ownership.
func (s *Service) DeleteSession(ctx context.Context, userID, sessionID string) error {
	return s.Sessions.Delete(ctx, sessionID, userID)
}

// userScopedStore adapts OwnedStore's (id, userID) signatures to the plain
// sessions.Store shape BuildConversationWindow expects, pinning userID so
// ownership is still enforced on the GetHistory call it makes internally.
type userScopedStore struct {
	inner  *sessions.OwnedStore
	userID string
}

func (u *userScopedStore) Create(ctx context.Context, session *models.Session) error {
	return u.inner.Create(ctx, session)
}

func (u *userScopedStore) Get(ctx context.Context, id string) (*models.Session, error) {
	return u.inner.Get(ctx, id, u.userID)
}

func (u *userScopedStore) Update(ctx context.Context, session *models.Session) error {
	return u.inner.Update(ctx, session, u.userID)
}

func (u *userScopedStore) Delete(ctx context.Context, id string) error {
	return u.inner.Delete(ctx, id, u.userID)
}

func (u *userScopedStore) GetOrCreate(ctx context.Context, id string, userID string) (*models.Session, error) {
	return u.inner.GetOrCreate(ctx, id, userID)
}

func (u *userScopedStore) List(ctx context.Context, userID string, opts sessions.ListOptions) ([]*models.Session, models.Pagination, error) {
	return u.inner.List(ctx, userID, opts)
}

func (u *userScopedStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	return u.inner.AppendMessage(ctx, sessionID, u.userID, msg)
}

func (u *userScopedStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	return u.inner.GetHistory(ctx, sessionID, u.userID, limit)
}
