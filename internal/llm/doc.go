// Package llm wraps text generation backends used by the enrichment
// pipeline. A Generator produces completions from Ollama or any
// OpenAI-compatible endpoint, and an Annotator turns raw shell commands
// into one-sentence descriptions plus a handful of tags by asking the
// model for a JSON object and parsing it defensively.
package llm
