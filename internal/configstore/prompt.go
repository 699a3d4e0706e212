package configstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finqa/ragqa/pkg/models"
)

// GetActivePrompt returns the active Prompt for (name, promptType), or
// ErrNotFound if none exists. Results are cached with a 5s TTL.
func (s *Store) GetActivePrompt(ctx context.Context, name string, promptType models.PromptType) (*models.Prompt, error) {
	cacheKey := "prompt:" + name + ":" + string(promptType)
	if v, ok := s.cache.get(cacheKey); ok {
		return v.(*models.Prompt), nil
	}

	p, err := s.loadActivePrompt(ctx, name, promptType)
	if err != nil {
		return nil, err
	}
	s.cache.set(cacheKey, p)
	return p, nil
}

func (s *Store) loadActivePrompt(ctx context.Context, name string, promptType models.PromptType) (*models.Prompt, error) {
	if s.db == nil {
		return nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, prompt_type, version, content, notes, active, usage_count, created_at, updated_at
		FROM prompts
		WHERE name = $1 AND prompt_type = $2 AND active = true
		LIMIT 1`, name, promptType)

	var p models.Prompt
	err := row.Scan(&p.ID, &p.Name, &p.PromptType, &p.Version, &p.Content, &p.Notes, &p.Active, &p.UsageCount, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: load active prompt: %w", err)
	}
	return &p, nil
}

// FormatPrompt loads the active prompt for (name, promptType), substitutes
// {placeholder} variables, and returns (content, version). On any failure —
// not found, missing variable, store unreachable — it returns fallback with
// a nil version. This call never raises to the agent.
func (s *Store) FormatPrompt(ctx context.Context, name string, promptType models.PromptType, vars map[string]string, fallback string) (string, *int) {
	p, err := s.GetActivePrompt(ctx, name, promptType)
	if err != nil {
		return fallback, nil
	}

	content, err := substitute(p.Content, vars)
	if err != nil {
		return fallback, nil
	}
	v := p.Version
	return content, &v
}

// substitute replaces every {var} placeholder in tmpl with vars[var]. It
// fails closed: any placeholder absent from vars is an error, not a
// silent pass-through of the literal "{var}" text.
func substitute(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.IndexByte(tmpl[i:], '{')
		if open == -1 {
			b.WriteString(tmpl[i:])
			break
		}
		open += i
		b.WriteString(tmpl[i:open])
		close := strings.IndexByte(tmpl[open:], '}')
		if close == -1 {
			return "", fmt.Errorf("configstore: unterminated placeholder in prompt")
		}
		close += open
		name := tmpl[open+1 : close]
		val, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("configstore: missing prompt variable %q", name)
		}
		b.WriteString(val)
		i = close + 1
	}
	return b.String(), nil
}

// CreatePromptVersion inserts a new Prompt version for (name, promptType),
// optionally activating it immediately.
func (s *Store) CreatePromptVersion(ctx context.Context, name string, promptType models.PromptType, content, notes string, activate bool) (*models.Prompt, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	nextVersion := 1
	if s.db != nil {
		row := s.db.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM prompts WHERE name = $1 AND prompt_type = $2`, name, promptType)
		var maxVersion int
		if err := row.Scan(&maxVersion); err != nil {
			return nil, fmt.Errorf("configstore: version lookup: %w", err)
		}
		nextVersion = maxVersion + 1
	}

	now := time.Now().UTC()
	p := &models.Prompt{
		ID:         uuid.New().String(),
		Name:       name,
		PromptType: promptType,
		Version:    nextVersion,
		Content:    content,
		Notes:      notes,
		Active:     activate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if s.db != nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("configstore: begin tx: %w", err)
		}
		defer tx.Rollback()

		if activate {
			if _, err := tx.ExecContext(ctx,
				`UPDATE prompts SET active = false WHERE name = $1 AND prompt_type = $2 AND active = true`,
				name, promptType); err != nil {
				return nil, fmt.Errorf("configstore: deactivate siblings: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO prompts (id, name, prompt_type, version, content, notes, active, usage_count, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,0,$8,$9)`,
			p.ID, p.Name, p.PromptType, p.Version, p.Content, p.Notes, p.Active, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("configstore: insert prompt version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("configstore: commit prompt version: %w", err)
		}
	}

	if activate {
		s.cache.set("prompt:"+name+":"+string(promptType), p)
	}
	return p, nil
}

// ActivateVersion atomically sets active=true for promptID and active=false
// for every other version sharing its (name, prompt_type). Readers never
// observe a state with zero or two active versions.
func (s *Store) ActivateVersion(ctx context.Context, promptID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.db == nil {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("configstore: begin tx: %w", err)
	}
	defer tx.Rollback()

	var name string
	var promptType models.PromptType
	row := tx.QueryRowContext(ctx, `SELECT name, prompt_type FROM prompts WHERE id = $1`, promptID)
	if err := row.Scan(&name, &promptType); err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("configstore: lookup prompt: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET active = false WHERE name = $1 AND prompt_type = $2 AND active = true`,
		name, promptType); err != nil {
		return fmt.Errorf("configstore: deactivate siblings: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE prompts SET active = true, updated_at = now() WHERE id = $1`, promptID); err != nil {
		return fmt.Errorf("configstore: activate version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("configstore: commit activation: %w", err)
	}

	s.cache.invalidate("prompt:" + name + ":" + string(promptType))
	return nil
}
