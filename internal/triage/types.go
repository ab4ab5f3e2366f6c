package triage

// AnswerType constrains how a follow-up question is expected to be answered.
type AnswerType string

const (
	AnswerYesNo    AnswerType = "yes_no"
	AnswerOpenText AnswerType = "open_text"
)

// Valid reports whether t is one of the two allowed answer types.
func (t AnswerType) Valid() bool {
	return t == AnswerYesNo || t == AnswerOpenText
}

// Severity is the urgency label of a final recommendation. The labels are the
// canonical French wire values used by the original Caducée service.
type Severity string

const (
	SeverityMild     Severity = "Bénin"
	SeverityModerate Severity = "Modéré"
	SeverityUrgent   Severity = "Urgent"
)

// Valid reports whether s is one of the three allowed severity labels.
func (s Severity) Valid() bool {
	return s == SeverityMild || s == SeverityModerate || s == SeverityUrgent
}

// Turn is one question/answer exchange within a refinement session. Turns are
// append-only and their order is significant: the full sequence is replayed
// verbatim into every subsequent prompt.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// InitialAnalysis is the oracle's reply to the opening symptom description.
type InitialAnalysis struct {
	Summary         string     `json:"symptom"`
	Differentials   []string   `json:"differential_diagnoses"`
	FirstQuestion   string     `json:"first_question"`
	AnswerType      AnswerType `json:"answer_type"`
	Recommendations []string   `json:"recommendations"`
	Disclaimer      string     `json:"disclaimer"`
}

// FollowUpQuestion asks the caller for one more piece of information.
type FollowUpQuestion struct {
	Text       string     `json:"next_question"`
	AnswerType AnswerType `json:"answer_type"`
}

// FinalRecommendation concludes the dialogue with a severity-rated advice.
type FinalRecommendation struct {
	Severity       Severity `json:"severity_level"`
	Recommendation string   `json:"final_recommendation"`
}

// Decision is the oracle's per-turn verdict. Exactly one of Ask or Final is
// set; a reply carrying both or neither is a contract violation, never a
// merged decision.
type Decision struct {
	Ask   *FollowUpQuestion
	Final *FinalRecommendation
}

// Concluded reports whether the decision ends the dialogue.
func (d *Decision) Concluded() bool {
	return d.Final != nil
}
