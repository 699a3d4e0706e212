package agentgraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/finqa/ragqa/pkg/models"
)

// retrieveContext embeds the query, searches the vector store, and formats
// the retrieved chunks into a single context string, each chunk prefixed
// with its source and separated by a blank line.
func (g *Graph) retrieveContext(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	emb, err := g.Embedder.Embed(ctx, state.Query)
	if err != nil {
		g.Logger.Warn("retrieve_context: query embedding failed", "error", err)
		return
	}

	k := cfg.SearchSettings.MaxResults
	if k <= 0 {
		k = 5
	}
	threshold := cfg.SearchSettings.SimilarityThreshold

	req := &models.DocumentSearchRequest{Query: state.Query, Limit: k, Threshold: threshold}

	var resp *models.DocumentSearchResponse
	if cfg.SearchSettings.HybridSearch {
		resp, err = g.Store.HybridSearch(ctx, emb, state.Query, k, threshold, req)
	} else {
		resp, err = g.Store.VectorSearch(ctx, emb, k, threshold, req)
	}
	if err != nil {
		g.Logger.Warn("retrieve_context: search failed", "error", err)
		return
	}
	if resp == nil {
		return
	}

	chunks := make([]ContextChunk, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r == nil || r.Chunk == nil {
			continue
		}
		chunks = append(chunks, ContextChunk{Chunk: r.Chunk, Score: r.Score})
	}

	state.ContextChunks = chunks
	state.SourcesUsed = chunks
	state.ContextText = formatContextText(chunks)
}

func formatContextText(chunks []ContextChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		source := c.Chunk.Metadata.DocumentSource
		parts = append(parts, fmt.Sprintf("Source: %s\n%s", source, c.Chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}
