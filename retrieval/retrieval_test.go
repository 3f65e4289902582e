package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/jobtalk/jobtalk/chunker"
	"github.com/jobtalk/jobtalk/embedding"
	"github.com/jobtalk/jobtalk/errors"
	"github.com/jobtalk/jobtalk/logging"
	"github.com/jobtalk/jobtalk/vectorstore"
)

func newTestOrchestrator() (*Orchestrator, *vectorstore.MemoryStore) {
	store := vectorstore.NewMemoryStore()
	embedder := embedding.NewHashEmbedder(128)
	log := logging.New()
	log.SetOutput(&strings.Builder{})
	return NewOrchestrator(store, embedder, log, 5), store
}

func TestBootstrapAndRetrieve(t *testing.T) {
	o, _ := newTestOrchestrator()
	ctx := context.Background()

	chunks := chunker.FromTexts([]string{
		"Seven years of Go and Kubernetes experience.",
		"Led a platform team of five engineers.",
		"BSc in computer science.",
	}, "session-abc")

	if o.Sessions().State("abc") != StateEmpty {
		t.Error("new session should be empty")
	}
	if err := o.Bootstrap(ctx, "abc", chunks); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if !o.Sessions().Ready("abc") {
		t.Error("session should be ready after bootstrap")
	}

	contextText, degraded := o.Retrieve(ctx, "abc", "How much Go experience?")
	if degraded {
		t.Fatal("retrieve degraded unexpectedly")
	}
	if !strings.Contains(contextText, "(1) ") {
		t.Errorf("context not numbered: %q", contextText)
	}
	// All three chunks fit within topK
	for _, c := range chunks {
		if !strings.Contains(contextText, c.Text) {
			t.Errorf("context missing chunk %q", c.Text)
		}
	}
}

func TestBootstrap_Idempotent(t *testing.T) {
	o, store := newTestOrchestrator()
	ctx := context.Background()

	chunks := chunker.FromTexts([]string{"alpha", "beta"}, "s")
	if err := o.Bootstrap(ctx, "s", chunks); err != nil {
		t.Fatalf("first bootstrap: %v", err)
	}
	if err := o.Bootstrap(ctx, "s", chunks); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}

	vecs, _ := embedding.NewHashEmbedder(128).Embed(ctx, []string{"alpha"})
	matches, err := store.Query(ctx, Namespace("s"), vecs[0], 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("re-bootstrap duplicated records: got %d, want 2", len(matches))
	}
}

func TestBootstrap_EmptyChunks(t *testing.T) {
	o, _ := newTestOrchestrator()
	err := o.Bootstrap(context.Background(), "s", nil)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("got %v, want INVALID_INPUT", err)
	}
	if o.Sessions().Ready("s") {
		t.Error("failed bootstrap should not mark session ready")
	}
}

// failingStore wraps MemoryStore and fails queries.
type failingStore struct {
	*vectorstore.MemoryStore
}

func (f *failingStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectorstore.Match, error) {
	return nil, errors.StoreUnavailable("store is down")
}

func TestRetrieve_DegradesOnStoreFailure(t *testing.T) {
	store := &failingStore{vectorstore.NewMemoryStore()}
	log := logging.New()
	var buf strings.Builder
	log.SetOutput(&buf)
	o := NewOrchestrator(store, embedding.NewHashEmbedder(128), log, 5)

	contextText, degraded := o.Retrieve(context.Background(), "s", "anything?")
	if !degraded {
		t.Error("store failure should degrade the turn")
	}
	if contextText != "" {
		t.Errorf("degraded turn should have empty context, got %q", contextText)
	}
	if !strings.Contains(buf.String(), "retrieval_degraded") {
		t.Errorf("degradation not logged: %q", buf.String())
	}
}

func TestRetrieve_EmptySessionYieldsEmptyContext(t *testing.T) {
	o, _ := newTestOrchestrator()
	contextText, degraded := o.Retrieve(context.Background(), "never-bootstrapped", "hello?")
	if degraded {
		t.Error("empty session is not a degradation")
	}
	if contextText != "" {
		t.Errorf("expected empty context, got %q", contextText)
	}
}

func TestAssembleContext(t *testing.T) {
	matches := []vectorstore.Match{
		{ID: "a", Score: 0.9, Metadata: map[string]string{"text": "first"}},
		{ID: "b", Score: 0.8, Metadata: map[string]string{}},
		{ID: "c", Score: 0.7, Metadata: map[string]string{"text": "second"}},
	}
	got := AssembleContext(matches)
	want := "(1) first\n\n(2) second"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if AssembleContext(nil) != "" {
		t.Error("no matches should assemble to empty string")
	}
}

func TestNamespace(t *testing.T) {
	if Namespace("abc") != "session-abc" {
		t.Errorf("namespace: got %q", Namespace("abc"))
	}
}
