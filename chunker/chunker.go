package chunker

import (
	"github.com/jobtalk/jobtalk/errors"
)

// DefaultSize is the default number of characters per chunk.
const DefaultSize = 1000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 200

// Chunk is a bounded substring window of a source document used as a
// retrieval unit. Chunks are immutable once created; re-uploading a document
// replaces its chunk sequence rather than merging into it.
type Chunk struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Index is the position in the ordered chunk sequence of one document.
	Index int `json:"index"`

	// SourceID identifies the session or document the chunk came from.
	SourceID string `json:"source_id,omitempty"`
}

// Split divides text into overlapping fixed-size windows. Each window holds
// up to size characters and the start advances by size-overlap, so the final
// window may be shorter. Empty text yields an empty sequence; text shorter
// than size yields exactly one chunk.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "chunk overlap must be in [0, size), got %d with size %d", overlap, size)
	}

	if text == "" {
		return nil, nil
	}

	step := size - overlap
	estimated := len(text)/step + 1
	chunks := make([]Chunk, 0, estimated)

	for start := 0; start < len(text); start += step {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{
			Text:  text[start:end],
			Index: len(chunks),
		})
		// A window that reached the end of the text makes any further
		// window pure overlap.
		if end == len(text) {
			break
		}
	}

	return chunks, nil
}

// SplitWithSource chunks text and stamps every chunk with the given source ID.
func SplitWithSource(text, sourceID string, size, overlap int) ([]Chunk, error) {
	chunks, err := Split(text, size, overlap)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		chunks[i].SourceID = sourceID
	}
	return chunks, nil
}

// Texts extracts the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// FromTexts rebuilds a chunk sequence from pre-chunked texts, preserving
// order. Used when a client sends back the chunks it received at upload time.
func FromTexts(texts []string, sourceID string) []Chunk {
	chunks := make([]Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, Chunk{Text: t, Index: i, SourceID: sourceID})
	}
	return chunks
}
