package openai

import (
	"testing"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestNewDefaultsToSmallEmbeddingModel(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.client == nil {
		t.Fatal("client should not be nil")
	}
	if p.model != "text-embedding-3-small" {
		t.Errorf("model = %q, want text-embedding-3-small", p.model)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
}

func TestNewHonorsModelAndBaseURL(t *testing.T) {
	p, err := New(Config{
		APIKey:  "test-key",
		Model:   "text-embedding-3-large",
		BaseURL: "http://proxy.internal:8080/v1",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "text-embedding-3-large" {
		t.Errorf("model = %q, want text-embedding-3-large", p.model)
	}
}

func TestDimensionPerModel(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-ada-002", 1536},
		{"unknown-model", 1536},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, err := New(Config{APIKey: "test-key", Model: tt.model})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if dim := p.Dimension(); dim != tt.want {
				t.Errorf("Dimension() = %d, want %d", dim, tt.want)
			}
		})
	}
}

func TestMaxBatchSizeMatchesProviderLimit(t *testing.T) {
	p, err := New(Config{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if max := p.MaxBatchSize(); max != 2048 {
		t.Errorf("MaxBatchSize() = %d, want 2048", max)
	}
}
