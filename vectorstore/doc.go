// Package vectorstore provides namespaced vector similarity storage. The
// Pinecone adapter is the production backend; the in-memory store backs tests
// and single-process runs.
package vectorstore
