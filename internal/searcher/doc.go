// Package searcher ranks command entries against free-text queries.
//
// Three modes are available: lexical (BM25 over the FTS index), semantic
// (cosine similarity over embeddings), and hybrid. Hybrid overfetches from
// both sub-indexes concurrently, min-max normalizes each ranking, and fuses
// them with a weighted sum that defaults to favoring the semantic side.
// When one hybrid sub-search fails the other's results are returned alone
// and the response is marked Degraded.
//
// Responses can be cached in an LRU with a TTL; writes to the store should
// call InvalidateCache.
package searcher
