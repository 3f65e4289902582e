// Package retrieval orchestrates the session pipeline: bootstrapping resume
// chunks into the vector store and retrieving context for chat questions.
package retrieval
