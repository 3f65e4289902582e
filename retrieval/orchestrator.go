package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jobtalk/jobtalk/chunker"
	"github.com/jobtalk/jobtalk/embedding"
	"github.com/jobtalk/jobtalk/errors"
	"github.com/jobtalk/jobtalk/logging"
	"github.com/jobtalk/jobtalk/vectorstore"
)

// SourceResume labels records that came from an uploaded resume.
const SourceResume = "resume"

// Namespace returns the vector store namespace for a session. One namespace
// per session keeps resumes isolated from each other.
func Namespace(sessionID string) string {
	return "session-" + sessionID
}

// Orchestrator runs the retrieval pipeline: it bootstraps sessions into the
// vector store and pulls context for chat questions.
type Orchestrator struct {
	store    vectorstore.Store
	embedder embedding.Embedder
	sessions *Sessions
	log      *logging.Logger
	topK     int
}

// NewOrchestrator creates an orchestrator over the given store and embedder.
func NewOrchestrator(store vectorstore.Store, embedder embedding.Embedder, log *logging.Logger, topK int) *Orchestrator {
	if topK <= 0 {
		topK = 5
	}
	return &Orchestrator{
		store:    store,
		embedder: embedder,
		sessions: NewSessions(),
		log:      log.WithComponent("retrieval"),
		topK:     topK,
	}
}

// Sessions exposes the session registry.
func (o *Orchestrator) Sessions() *Sessions {
	return o.sessions
}

// Bootstrap embeds a session's chunks and upserts them into the session
// namespace. Record IDs are derived from the namespace and chunk index, so
// re-running the same bootstrap overwrites rather than duplicates. Two
// concurrent bootstraps for one session race harmlessly for the same reason.
func (o *Orchestrator) Bootstrap(ctx context.Context, sessionID string, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return errors.InvalidInput("no chunks to bootstrap", errors.WithSessionID(sessionID))
	}

	start := time.Now()
	o.sessions.setState(sessionID, StateBootstrapping)

	if err := o.store.EnsureIndex(ctx, o.embedder.Dimension()); err != nil {
		o.sessions.setState(sessionID, StateEmpty)
		o.log.BootstrapFailed(sessionID, err)
		return errors.Wrap(err, "failed to ensure index", errors.WithSessionID(sessionID))
	}

	vectors, err := o.embedder.Embed(ctx, chunker.Texts(chunks))
	if err != nil {
		o.sessions.setState(sessionID, StateEmpty)
		o.log.BootstrapFailed(sessionID, err)
		return errors.Wrap(err, "failed to embed chunks", errors.WithSessionID(sessionID))
	}
	if len(vectors) != len(chunks) {
		o.sessions.setState(sessionID, StateEmpty)
		err := errors.Newf(errors.ErrCodeMalformedResponse,
			"embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		o.log.BootstrapFailed(sessionID, err)
		return err
	}

	namespace := Namespace(sessionID)
	records := make([]vectorstore.Record, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, vectorstore.Record{
			ID:     fmt.Sprintf("%s-%d", namespace, c.Index),
			Values: vectors[i],
			Metadata: map[string]string{
				"text":   c.Text,
				"source": SourceResume,
			},
		})
	}

	written, err := o.store.Upsert(ctx, namespace, records)
	if err != nil {
		o.sessions.setState(sessionID, StateEmpty)
		o.log.BootstrapFailed(sessionID, err)
		return errors.Wrap(err, "failed to upsert chunks", errors.WithSessionID(sessionID))
	}

	o.sessions.setState(sessionID, StateReady)
	o.log.BootstrapDone(sessionID, len(chunks), written, time.Since(start))
	return nil
}

// Retrieve embeds the question, queries the session namespace, and assembles
// the matches into a numbered context block. Retrieval never fails a chat
// turn: any error degrades to empty context with degraded=true.
func (o *Orchestrator) Retrieve(ctx context.Context, sessionID, question string) (contextText string, degraded bool) {
	vectors, err := o.embedder.Embed(ctx, []string{question})
	if err != nil || len(vectors) != 1 {
		if err == nil {
			err = errors.Newf(errors.ErrCodeMalformedResponse,
				"embedder returned %d vectors for one question", len(vectors))
		}
		o.log.RetrievalDegraded(sessionID, err)
		return "", true
	}

	matches, err := o.store.Query(ctx, Namespace(sessionID), vectors[0], o.topK)
	if err != nil {
		o.log.RetrievalDegraded(sessionID, err)
		return "", true
	}

	return AssembleContext(matches), false
}

// AssembleContext joins match texts into a numbered block:
//
//	(1) first chunk
//
//	(2) second chunk
//
// Matches without text metadata are skipped.
func AssembleContext(matches []vectorstore.Match) string {
	var parts []string
	for _, m := range matches {
		text := m.Metadata["text"]
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("(%d) %s", len(parts)+1, text))
	}
	return strings.Join(parts, "\n\n")
}
