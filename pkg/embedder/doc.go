// Package embedder provides sentence embedding clients used to prune candidate
// pairs before NLI scoring.
//
// This package defines the Client interface and provides implementations backed by
// go-embedeverything (local HuggingFace encoders), a badger-backed vector cache and a
// deterministic mock for tests.
//
// # Usage
//
//	client, err := embedder.NewClient(embedder.ClientConfig{
//	    Provider: embedder.ProviderEmbedEverything,
//	    Config:   embedder.Config{Model: "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"},
//	})
//	vectors, err := client.Embed(ctx, sentences)
//
// # Caching
//
// CachedClient wraps any Client and persists vectors keyed by model and text, so
// repeated analyses of overlapping documents skip the encoder for known sentences:
//
//	cached, err := embedder.NewCachedClient(client, embedder.CacheConfig{Dir: "/var/cache/contradict"})
//
// Vectors are returned as produced by the encoder. Callers that need unit vectors
// normalise them.
package embedder
