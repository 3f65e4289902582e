// Package embedding turns text into fixed-length vectors for similarity
// search. The OpenAI embedder is the production path; the hash embedder is a
// deterministic stand-in used when no API key is configured.
package embedding
