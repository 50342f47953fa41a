// Package ollama provides an ai.Embedder backed by the native Ollama API.
//
// Use this package when talking to Ollama's /api/embed endpoint directly
// instead of its OpenAI-compatible /v1 surface.
package ollama
