package model

import "fmt"

type Origin string

const (
	OriginLocal Origin = "local"
	OriginWeb   Origin = "web"
)

// AnswerAttempt is a candidate answer produced by one of the answering paths
type AnswerAttempt struct {
	Text   string
	Origin Origin
}

type ReasonCode string

const (
	ReasonEmpty             ReasonCode = "EMPTY"
	ReasonUncertainPhrasing ReasonCode = "UNCERTAIN_PHRASING"
	ReasonTooShort          ReasonCode = "TOO_SHORT"
)

// Verdict is the adequacy judgement of a local answer
type Verdict struct {
	Adequate bool
	Reason   ReasonCode

	// Length is the trimmed answer length in characters, set for ReasonTooShort
	Length int
}

// Detail returns a human readable explanation of the verdict
func (v Verdict) Detail() string {
	switch v.Reason {
	case ReasonEmpty:
		return "Local DB returned nothing."
	case ReasonUncertainPhrasing:
		return "LLM responded with 'I don't know'."
	case ReasonTooShort:
		return fmt.Sprintf("Local answer too short: %d characters.", v.Length)
	default:
		return ""
	}
}

type Provenance string

const (
	ProvenanceLocalKB   Provenance = "LOCAL_KB"
	ProvenanceWebSearch Provenance = "WEB_SEARCH"
)

// Label returns the display name of the answer source
func (p Provenance) Label() string {
	switch p {
	case ProvenanceLocalKB:
		return "Local Knowledge Base"
	case ProvenanceWebSearch:
		return "Web Search"
	default:
		return string(p)
	}
}

// FinalResponse is the single result of one query cycle
type FinalResponse struct {
	RequestID      string
	Text           string
	Provenance     Provenance
	FallbackReason ReasonCode // empty unless Provenance is ProvenanceWebSearch
	FallbackDetail string
}
