// Package chunker splits raw document text into overlapping fixed-size
// windows for embedding and retrieval.
package chunker
