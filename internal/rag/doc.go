// Package rag implements the retrieval half of the voice agent's
// retrieval-augmented generation pipeline.
//
// # Overview
//
// The knowledge base is embedded once at startup into an in-memory index:
//
//	corpus.Load
//	     |
//	     v
//	rag.Build (one embedding per document, uniform dimensionality)
//	     |
//	     v
//	rag.Index (immutable, brute-force squared-L2 search)
//	     ^
//	     |
//	rag.Retriever (per-query embedding + top-k selection)
//
// # Key Components
//
// Embedder: the text-to-vector contract. The Gemini-backed implementation
// lives in internal/gemini; KeywordEmbedder is the offline provider.
//
// Index: owns every (document, vector) entry. Built once, never mutated;
// a corpus change means a full rebuild.
//
// Retriever: embeds query text with the same embedder identity used at build
// time and reports documents with ascending distance scores.
//
// # Thread Safety
//
// Index is immutable after Build and safe for unlimited concurrent Search
// calls without locking. Retriever is stateless apart from its references.
package rag
