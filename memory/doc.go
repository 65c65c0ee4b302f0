// Package memory implements the contextual-memory retrieval gate: the logic
// that decides, per incoming user message, which artifacts are relevant
// enough to inject into the assistant's context.
//
// Architecture:
//   - Scorer: query/artifact confidence in [0,1] (embedding cosine with a
//     lexical fallback for artifacts that have no usable embedding)
//   - Gate: orchestrates scoring, thresholding, ranking and manual
//     overrides, then renders the bounded context block
//   - Refresher: fire-and-forget embedding recomputation after entry
//     mutations
//   - Embedder: text-to-vector conversion (mock for tests, ONNX MiniLM for
//     local use, API embedders in production)
//
// Retrieval is best-effort by design: any store or scorer failure degrades
// to "no context injected" and is logged. Retrieval must never abort the
// enclosing chat turn.
package memory
