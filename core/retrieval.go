package core

// CandidateSource records how a retrieval candidate was selected.
type CandidateSource string

const (
	// SourceAuto marks candidates matched by the relevance scorer.
	SourceAuto CandidateSource = "auto"

	// SourceManual marks candidates forced in by the caller.
	SourceManual CandidateSource = "manual"
)

// ManualConfidence is the confidence assigned to manually forced artifact
// ids. Callers may depend on the exact value, keep it at the scale maximum.
const ManualConfidence = 1.0

// RetrievalCandidate is a transient scoring result. It is never persisted.
type RetrievalCandidate struct {
	ArtifactID string          `json:"artifactId"`
	Confidence float64         `json:"confidence"`
	Source     CandidateSource `json:"source"`
}

// ConfidenceLabel buckets a confidence score for client display.
type ConfidenceLabel string

const (
	// ConfidenceHigh labels candidates the gate is near-certain about.
	ConfidenceHigh ConfidenceLabel = "high"

	// ConfidencePossible labels candidates worth showing but not certain.
	ConfidencePossible ConfidenceLabel = "possible"
)

// InjectedArtifact describes an artifact that was auto-injected into a chat
// turn, as reported to the client in the final stream frame.
type InjectedArtifact struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Confidence ConfidenceLabel `json:"confidence"`
}
