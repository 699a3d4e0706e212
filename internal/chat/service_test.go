package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finqa/ragqa/internal/agentgraph"
	"github.com/finqa/ragqa/internal/sessions"
	"github.com/finqa/ragqa/internal/streaming"
	"github.com/finqa/ragqa/pkg/models"
)

// The transport-facing emitter must satisfy this package's contract.
var _ Emitter = (*streaming.Emitter)(nil)

// fakeGraph returns a canned Output and optionally streams deltas through
// state.Stream before completing, the way the real generate node does.
type fakeGraph struct {
	out        *agentgraph.Output
	err        error
	deltas     []string
	gotHistory []*models.Message
}

func (g *fakeGraph) Run(ctx context.Context, state *agentgraph.AgentState) (*agentgraph.Output, error) {
	g.gotHistory = state.ConversationHistory
	if g.err != nil {
		return nil, g.err
	}
	if state.Stream != nil {
		for _, d := range g.deltas {
			state.Stream(d)
		}
	}
	out := *g.out
	return &out, nil
}

func newTestService(graph Grapher) *Service {
	store := sessions.NewOwnedStore(sessions.NewMemoryStore())
	return NewService(store, graph, 0, 0)
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	graph := &fakeGraph{out: &agentgraph.Output{Message: "the settlement window is T+2", Confidence: 0.97}}
	svc := newTestService(graph)
	ctx := context.Background()

	out, err := svc.Send(ctx, "user-a", "sess-1", "when do card payouts settle?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", out.SessionID)
	}

	history, err := svc.History(ctx, "user-a", "sess-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != models.RoleUser || history[0].Content != "when do card payouts settle?" {
		t.Errorf("first message = %s %q, want user turn", history[0].Role, history[0].Content)
	}
	if history[1].Role != models.RoleAssistant || history[1].Content != "the settlement window is T+2" {
		t.Errorf("second message = %s %q, want assistant turn", history[1].Role, history[1].Content)
	}
	if history[1].Confidence == nil || *history[1].Confidence != 0.97 {
		t.Errorf("assistant confidence = %v, want 0.97", history[1].Confidence)
	}
}

func TestSendGeneratesSessionIDWhenEmpty(t *testing.T) {
	graph := &fakeGraph{out: &agentgraph.Output{Message: "ok", Confidence: 1}}
	svc := newTestService(graph)

	out, err := svc.Send(context.Background(), "user-a", "", "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.SessionID == "" {
		t.Fatal("expected generated session id")
	}
}

func TestSendRejectsOversizedMessage(t *testing.T) {
	svc := newTestService(&fakeGraph{out: &agentgraph.Output{}})

	_, err := svc.Send(context.Background(), "user-a", "sess-1", strings.Repeat("x", 4001))
	if !errors.Is(err, ErrMessageTooLong) {
		t.Fatalf("err = %v, want ErrMessageTooLong", err)
	}
}

func TestSendForbiddenForForeignSession(t *testing.T) {
	graph := &fakeGraph{out: &agentgraph.Output{Message: "ok", Confidence: 1}}
	svc := newTestService(graph)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "user-a", "sess-1", "first"); err != nil {
		t.Fatalf("Send as owner: %v", err)
	}

	_, err := svc.Send(ctx, "user-b", "sess-1", "intruding")
	if !errors.Is(err, sessions.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// The owner's history is untouched by the rejected attempt.
	history, err := svc.History(ctx, "user-a", "sess-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestSendPassesWindowToGraph(t *testing.T) {
	graph := &fakeGraph{out: &agentgraph.Output{Message: "ok", Confidence: 1}}
	svc := newTestService(graph)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "user-a", "sess-1", "first question"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Send(ctx, "user-a", "sess-1", "second question"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// The second run saw the first turn's user+assistant pair as history.
	if len(graph.gotHistory) != 2 {
		t.Fatalf("window length = %d, want 2", len(graph.gotHistory))
	}
	if graph.gotHistory[0].Content != "first question" {
		t.Errorf("window[0] = %q, want the first user turn", graph.gotHistory[0].Content)
	}
}

type recordingEmitter struct {
	chunks []string
	finals []*agentgraph.Output
}

func (e *recordingEmitter) Chunk(text string)            { e.chunks = append(e.chunks, text) }
func (e *recordingEmitter) Final(out *agentgraph.Output) { e.finals = append(e.finals, out) }

func TestSendStreamForwardsDeltasAndFinal(t *testing.T) {
	graph := &fakeGraph{
		out:    &agentgraph.Output{Message: "refunds take 5-10 days", Confidence: 0.96},
		deltas: []string{"refunds ", "take ", "5-10 days"},
	}
	svc := newTestService(graph)
	emitter := &recordingEmitter{}

	out, err := svc.SendStream(context.Background(), "user-a", "sess-1", "refund timing?", emitter)
	if err != nil {
		t.Fatalf("SendStream: %v", err)
	}
	if len(emitter.chunks) != 3 {
		t.Errorf("chunks = %d, want 3", len(emitter.chunks))
	}
	if len(emitter.finals) != 1 {
		t.Fatalf("finals = %d, want exactly 1", len(emitter.finals))
	}
	if emitter.finals[0] != out {
		t.Error("Final must receive the completed Output")
	}
	if out.SessionID != "sess-1" {
		t.Errorf("SessionID = %q, want sess-1", out.SessionID)
	}

	history, err := svc.History(context.Background(), "user-a", "sess-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestSendStreamEmitsFinalOnGraphFailure(t *testing.T) {
	graph := &fakeGraph{err: errors.New("provider unavailable")}
	svc := newTestService(graph)
	emitter := &recordingEmitter{}

	_, err := svc.SendStream(context.Background(), "user-a", "sess-1", "anything", emitter)
	if err == nil {
		t.Fatal("expected error from failed graph run")
	}
	if len(emitter.finals) != 1 {
		t.Fatalf("finals = %d, want exactly 1 even on failure", len(emitter.finals))
	}
}

func TestDeleteSessionEnforcesOwnership(t *testing.T) {
	graph := &fakeGraph{out: &agentgraph.Output{Message: "ok", Confidence: 1}}
	svc := newTestService(graph)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "user-a", "sess-1", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if err := svc.DeleteSession(ctx, "user-b", "sess-1"); !errors.Is(err, sessions.ErrForbidden) {
		t.Fatalf("foreign delete err = %v, want ErrForbidden", err)
	}

	if err := svc.DeleteSession(ctx, "user-a", "sess-1"); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	list, _, err := svc.ListSessions(ctx, "user-a", 1, 20)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("sessions after delete = %d, want 0", len(list))
	}
}
