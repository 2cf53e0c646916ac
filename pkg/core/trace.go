package core

// Role identifies the speaker of a dialogue step.
type Role string

// Dialogue roles.
const (
	RoleAI    Role = "ai"
	RoleHuman Role = "human"
)

// DialogueStep is one turn of the dialogue that produced a trace record.
type DialogueStep struct {
	Step    int    `json:"step"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TraceRecord is one logged dialogue/prediction event.
// Optional fields left empty by the backend stay at their zero value.
type TraceRecord struct {
	ID               string         `json:"id"`
	Timestamp        string         `json:"timestamp"`
	Query            string         `json:"query"`
	AIPrediction     string         `json:"ai_prediction"`
	Confidence       float64        `json:"confidence"`
	Persona          string         `json:"persona,omitempty"`
	Tone             string         `json:"tone,omitempty"`
	DialoguePath     []DialogueStep `json:"dialogue_path,omitempty"`
	GroundTruth      string         `json:"ground_truth,omitempty"`
	DiagnosisCorrect *bool          `json:"diagnosis_correct,omitempty"`

	Domain       string   `json:"domain,omitempty"`
	Category     string   `json:"category,omitempty"`
	Status       string   `json:"status,omitempty"`
	TotalTurns   int      `json:"total_turns,omitempty"`
	KeyQuestions []string `json:"key_questions,omitempty"`

	// FiledKey is the taxonomy key the record was filed under, if any.
	FiledKey string `json:"-"`
}

// MatchKey returns the key used for provenance matching: the filing key
// when the record was filed under one, the prediction label otherwise.
func (r TraceRecord) MatchKey() string {
	if r.FiledKey != "" {
		return r.FiledKey
	}
	return r.AIPrediction
}

// DedupKey identifies records that describe the same observation.
func (r TraceRecord) DedupKey() string {
	return r.Query + "|" + r.AIPrediction
}
