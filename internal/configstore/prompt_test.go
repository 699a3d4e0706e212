package configstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/finqa/ragqa/pkg/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, "production"), mock
}

func TestActivateVersionDeactivatesSiblingsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name, prompt_type FROM prompts WHERE id`).
		WithArgs("prompt-v2").
		WillReturnRows(sqlmock.NewRows([]string{"name", "prompt_type"}).AddRow("main_system_prompt", "system"))
	mock.ExpectExec(`UPDATE prompts SET active = false WHERE name`).
		WithArgs("main_system_prompt", "system").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE prompts SET active = true`).
		WithArgs("prompt-v2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ActivateVersion(context.Background(), "prompt-v2"); err != nil {
		t.Fatalf("ActivateVersion: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestActivateVersionUnknownIDReturnsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name, prompt_type FROM prompts WHERE id`).
		WithArgs("no-such-prompt").
		WillReturnRows(sqlmock.NewRows([]string{"name", "prompt_type"}))
	mock.ExpectRollback()

	err := store.ActivateVersion(context.Background(), "no-such-prompt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestActivateVersionInvalidatesCachedPrompt(t *testing.T) {
	store, mock := newMockStore(t)

	// Warm the cache with a v1 row.
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, name, prompt_type, version, content`).
		WithArgs("main_system_prompt", models.PromptTypeSystem).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "prompt_type", "version", "content", "notes", "active", "usage_count", "created_at", "updated_at"}).
			AddRow("prompt-v1", "main_system_prompt", "system", 1, "v1 content", "", true, 0, now, now))

	p, err := store.GetActivePrompt(context.Background(), "main_system_prompt", models.PromptTypeSystem)
	if err != nil {
		t.Fatalf("GetActivePrompt: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("version = %d, want 1", p.Version)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name, prompt_type FROM prompts WHERE id`).
		WithArgs("prompt-v2").
		WillReturnRows(sqlmock.NewRows([]string{"name", "prompt_type"}).AddRow("main_system_prompt", "system"))
	mock.ExpectExec(`UPDATE prompts SET active = false`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE prompts SET active = true`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.ActivateVersion(context.Background(), "prompt-v2"); err != nil {
		t.Fatalf("ActivateVersion: %v", err)
	}

	// The next read misses the invalidated cache and sees v2.
	mock.ExpectQuery(`SELECT id, name, prompt_type, version, content`).
		WithArgs("main_system_prompt", models.PromptTypeSystem).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "prompt_type", "version", "content", "notes", "active", "usage_count", "created_at", "updated_at"}).
			AddRow("prompt-v2", "main_system_prompt", "system", 2, "v2 content", "", true, 0, now, now))

	p, err = store.GetActivePrompt(context.Background(), "main_system_prompt", models.PromptTypeSystem)
	if err != nil {
		t.Fatalf("GetActivePrompt after activation: %v", err)
	}
	if p.Version != 2 {
		t.Errorf("version = %d, want 2 after activation", p.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePromptVersionIncrementsVersion(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM prompts`).
		WithArgs("escalation_message", models.PromptTypeSystem).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO prompts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := store.CreatePromptVersion(context.Background(), "escalation_message", models.PromptTypeSystem,
		"A specialist will follow up shortly.", "softer tone", false)
	if err != nil {
		t.Fatalf("CreatePromptVersion: %v", err)
	}
	if p.Version != 4 {
		t.Errorf("version = %d, want 4", p.Version)
	}
	if p.Active {
		t.Error("prompt should not be active unless activate=true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreatePromptVersionActivateDeactivatesSiblings(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(version\), 0\) FROM prompts`).
		WithArgs("main_system_prompt", models.PromptTypeSystem).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE prompts SET active = false`).
		WithArgs("main_system_prompt", models.PromptTypeSystem).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO prompts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := store.CreatePromptVersion(context.Background(), "main_system_prompt", models.PromptTypeSystem,
		"You are a finance operations assistant.", "", true)
	if err != nil {
		t.Fatalf("CreatePromptVersion: %v", err)
	}
	if !p.Active {
		t.Error("prompt should be active when activate=true")
	}

	// The activated version is served from cache without another query.
	got, err := store.GetActivePrompt(context.Background(), "main_system_prompt", models.PromptTypeSystem)
	if err != nil {
		t.Fatalf("GetActivePrompt: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
