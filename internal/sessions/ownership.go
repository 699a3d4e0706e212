package sessions

import (
	"context"

	"github.com/finqa/ragqa/pkg/models"
)

// OwnedStore wraps a Store and enforces the session ownership invariant
// in-process: every read or write of a session (or its messages) is
// parameterized by the authenticated caller's user id, and any attempt to
// address a session owned by a different user fails with ErrForbidden
// instead of touching the row. Create and List are unaffected — Create
// establishes ownership, List is already scoped to the caller's own rows.
type OwnedStore struct {
	inner Store
}

// NewOwnedStore wraps inner with ownership enforcement.
func NewOwnedStore(inner Store) *OwnedStore {
	return &OwnedStore{inner: inner}
}

func (s *OwnedStore) Create(ctx context.Context, session *models.Session) error {
	return s.inner.Create(ctx, session)
}

// Get returns the session with id if it exists and is owned by userID.
// A session owned by someone else fails with ErrForbidden, not ErrNotFound
// — the caller should not learn whether the id exists.
func (s *OwnedStore) Get(ctx context.Context, id string, userID string) (*models.Session, error) {
	session, err := s.inner.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// Update persists session only if the existing row is owned by userID.
func (s *OwnedStore) Update(ctx context.Context, session *models.Session, userID string) error {
	existing, err := s.inner.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.inner.Update(ctx, session)
}

// Delete hard-deletes id (cascading to its messages) only if it is owned by
// userID.
func (s *OwnedStore) Delete(ctx context.Context, id string, userID string) error {
	existing, err := s.inner.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.inner.Delete(ctx, id)
}

// GetOrCreate returns id's session if owned by userID, creating it owned by
// userID if it doesn't exist yet. An existing session owned by someone else
// fails with ErrForbidden.
func (s *OwnedStore) GetOrCreate(ctx context.Context, id string, userID string) (*models.Session, error) {
	session, err := s.inner.GetOrCreate(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// List returns userID's own sessions; there is nothing to enforce beyond
// scoping the query, which the underlying Store already does.
func (s *OwnedStore) List(ctx context.Context, userID string, opts ListOptions) ([]*models.Session, models.Pagination, error) {
	return s.inner.List(ctx, userID, opts)
}

// AppendMessage appends msg to sessionID's history only if sessionID is
// owned by userID.
func (s *OwnedStore) AppendMessage(ctx context.Context, sessionID string, userID string, msg *models.Message) error {
	existing, err := s.inner.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrForbidden
	}
	return s.inner.AppendMessage(ctx, sessionID, msg)
}

// GetHistory returns sessionID's messages only if sessionID is owned by
// userID.
func (s *OwnedStore) GetHistory(ctx context.Context, sessionID string, userID string, limit int) ([]*models.Message, error) {
	existing, err := s.inner.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrForbidden
	}
	return s.inner.GetHistory(ctx, sessionID, limit)
}

// Unwrap returns the wrapped Store, e.g. for passing to
// BuildConversationWindow once ownership has already been checked.
func (s *OwnedStore) Unwrap() Store {
	return s.inner
}
