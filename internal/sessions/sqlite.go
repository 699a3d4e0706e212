package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo toolchain required at deploy time

	"github.com/finqa/ragqa/pkg/models"
)

// SQLiteStore is a durable Store backed by a single SQLite file, for
// single-process deployments that need sessions to survive a restart
// without standing up Postgres. The schema mirrors MemoryStore's shape:
// one sessions row per Session, one messages row per turn, FK-cascaded on
// delete.
type SQLiteStore struct {
	db     *sql.DB
	locker Locker
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures its schema exists. path may be ":memory:" for tests. Message
// writes are serialized per session through an in-process Locker by
// default; UseLocker swaps in the DB-backed lease for multi-replica
// deployments.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sessions: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite tolerates one writer; avoids SQLITE_BUSY under concurrent AppendMessage

	s := &SQLiteStore{db: db, locker: NewLocalLocker(0)}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// UseLocker replaces the per-session write lock implementation. Call before
// the store is shared across goroutines.
func (s *SQLiteStore) UseLocker(l Locker) {
	if l != nil {
		s.locker = l
	}
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			title         TEXT,
			last_message  TEXT,
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_user_updated ON sessions(user_id, updated_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role        TEXT NOT NULL,
			content     TEXT NOT NULL,
			confidence  REAL,
			escalated   INTEGER NOT NULL DEFAULT 0,
			metadata    TEXT,
			created_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_session_created ON messages(session_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("sessions: create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt, session.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, last_message, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Title, session.LastMessage, session.MessageCount,
		session.CreatedAt, session.UpdatedAt)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, last_message, message_count, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SQLiteStore) Update(ctx context.Context, session *models.Session) error {
	if session == nil {
		return errors.New("session is required")
	}
	session.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET title = ?, last_message = ?, message_count = ?, updated_at = ?
		WHERE id = ?`,
		session.Title, session.LastMessage, session.MessageCount, session.UpdatedAt, session.ID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (s *SQLiteStore) GetOrCreate(ctx context.Context, id string, userID string) (*models.Session, error) {
	existing, err := s.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	session := &models.Session{ID: id, UserID: userID}
	if err := s.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQLiteStore) List(ctx context.Context, userID string, opts ListOptions) ([]*models.Session, models.Pagination, error) {
	pageSize := opts.Limit
	if pageSize <= 0 {
		pageSize = 20
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, models.Pagination{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, last_message, message_count, created_at, updated_at
		FROM sessions WHERE user_id = ? ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		userID, pageSize, opts.Offset)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, models.Pagination{}, err
		}
		out = append(out, sess)
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	return out, models.Pagination{
		Total:      total,
		Page:       opts.Offset/pageSize + 1,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, rows.Err()
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	if err := s.locker.Lock(ctx, sessionID); err != nil {
		return err
	}
	defer s.locker.Unlock(sessionID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	session, err := s.getTx(ctx, tx, sessionID)
	if err != nil {
		return err
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	var metadataJSON []byte
	if msg.Metadata != nil {
		if metadataJSON, err = json.Marshal(msg.Metadata); err != nil {
			return fmt.Errorf("sessions: marshal message metadata: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, session_id, role, content, confidence, escalated, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, string(msg.Role), msg.Content, msg.Confidence, msg.Escalated, metadataJSON, msg.CreatedAt,
	); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID).Scan(&count); err != nil {
		return err
	}

	title := session.Title
	if title == "" && msg.Role == models.RoleUser {
		title = truncateRunes(msg.Content, titlePrefixLen)
	}
	lastMessage := truncateRunes(msg.Content, lastMessagePrefixLen)

	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET title = ?, last_message = ?, message_count = ?, updated_at = ?
		WHERE id = ?`, title, lastMessage, count, time.Now().UTC(), sessionID,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]*models.Message, error) {
	query := `SELECT id, session_id, role, content, confidence, escalated, metadata, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at ASC`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT * FROM (` + query + ` DESC LIMIT ?) ORDER BY created_at ASC`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Message{}
	for rows.Next() {
		msg, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// PruneOlderThan deletes every session (cascading to its messages) last
// updated before cutoff, returning the number removed. Driven by
// SessionsConfig.RetentionDays via the scheduled retention sweep.
func (s *SQLiteStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) getTx(ctx context.Context, tx *sql.Tx, id string) (*models.Session, error) {
	row := tx.QueryRowContext(ctx, `
		SELECT id, user_id, title, last_message, message_count, created_at, updated_at
		FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*models.Session, error) {
	var sess models.Session
	var title, lastMessage sql.NullString
	if err := row.Scan(&sess.ID, &sess.UserID, &title, &lastMessage, &sess.MessageCount, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.Title = title.String
	sess.LastMessage = lastMessage.String
	return &sess, nil
}

func scanSessionRows(rows *sql.Rows) (*models.Session, error) {
	return scanSession(rows)
}

func scanMessageRow(rows *sql.Rows) (*models.Message, error) {
	var msg models.Message
	var role string
	var confidence sql.NullFloat64
	var escalated bool
	var metadataJSON sql.NullString
	if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &confidence, &escalated, &metadataJSON, &msg.CreatedAt); err != nil {
		return nil, err
	}
	msg.Role = models.Role(role)
	msg.Escalated = escalated
	if confidence.Valid {
		msg.Confidence = &confidence.Float64
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("sessions: unmarshal message metadata: %w", err)
		}
	}
	return &msg, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
