package core

// CandidateItem is a proposed knowledge item awaiting human triage.
type CandidateItem struct {
	ID          string   `json:"id"`
	Context     string   `json:"context"`
	Question    string   `json:"question"`
	AIRationale string   `json:"ai_rationale"`
	Confidence  float64  `json:"confidence"`
	NextNodes   []string `json:"next_nodes"`
}

// Outcome is the terminal result of triaging a candidate.
type Outcome string

// Triage outcomes.
const (
	OutcomeApproved  Outcome = "approved"
	OutcomeCorrected Outcome = "corrected"
	OutcomeRejected  Outcome = "rejected"
)
