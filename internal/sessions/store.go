package sessions

import (
	"context"
	"errors"

	"github.com/finqa/ragqa/pkg/models"
)

// ErrNotFound is returned when a session or message lookup finds nothing.
var ErrNotFound = errors.New("session: not found")

// ErrForbidden is returned when a caller attempts to read or write a
// session it does not own. Store implementations don't enforce ownership
// themselves — OwnedStore does, by comparing Session.UserID against the
// authenticated caller before delegating here.
var ErrForbidden = errors.New("session: forbidden")

// ListOptions paginates ListSessions.
type ListOptions struct {
	Limit  int
	Offset int
}

// Store persists Sessions and their Messages. A Session is created lazily
// on first message; deletion is a hard delete cascading to messages.
type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id string) error

	// GetOrCreate returns the session with id, creating it owned by userID
	// if it doesn't exist yet.
	GetOrCreate(ctx context.Context, id string, userID string) (*models.Session, error)

	// List returns userID's sessions ordered by UpdatedAt desc, paginated.
	List(ctx context.Context, userID string, opts ListOptions) ([]*models.Session, models.Pagination, error)

	// AppendMessage appends msg to sessionID's history and refreshes the
	// session's Title, LastMessage, MessageCount and UpdatedAt.
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error

	// GetHistory returns sessionID's messages in chronological order. If
	// limit > 0, only the most recent limit messages are returned.
	GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error)
}
