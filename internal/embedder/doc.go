// Package embedder generates vector embeddings for command entries and
// search queries.
//
// Three providers are supported:
//   - ollama: a local Ollama server (default, model mxbai-embed-large)
//   - openai: the OpenAI embeddings API (requires OPENAI_API_KEY)
//   - local: a deterministic hash-based embedder for offline use and tests
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{
//	    Provider:  "ollama",
//	    CacheSize: 10000,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "compress a directory into a tarball",
//	})
//
// # Empty Input
//
// Empty or whitespace-only text embeds to the zero vector without touching
// the backend. Callers use Embedding.IsZero to keep such vectors out of the
// index.
//
// # Caching and Retries
//
// Providers share an LRU cache keyed by the SHA-256 of the input text, and
// API calls are retried with exponential backoff before the provider is
// reported as failed.
package embedder
