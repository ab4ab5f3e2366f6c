package triage

import (
	"fmt"
	"strings"
)

// Disclaimer is returned verbatim with every initial analysis. The oracle is
// instructed to echo it unchanged.
const Disclaimer = "This analysis is generated by an AI assistant and is not a medical diagnosis. Consult a qualified health professional for any medical concern."

// FallbackQuestion replaces an absent first question in the oracle's initial
// reply so one missing key does not fail the whole turn.
const FallbackQuestion = "Do you have any other symptoms?"

const initialPromptTemplate = `You are a medical triage assistant. A patient describes their symptoms. Analyze the description and prepare the first step of a guided triage dialogue.

%sPatient symptoms:
%s

Respond with a JSON object containing exactly these keys:
{
  "symptom": "one-sentence summary of the reported symptoms",
  "differential_diagnoses": ["plausible conditions, most likely first"],
  "first_question": "the single most informative follow-up question to ask next",
  "answer_type": "yes_no or open_text",
  "recommendations": ["short list of first-line self-care recommendations"],
  "disclaimer": %q
}

"answer_type" must be exactly "yes_no" or "open_text". Return the disclaimer text verbatim. Return ONLY the JSON object, no markdown fences or other text.`

const refinePromptTemplate = `You are a medical triage assistant refining an ongoing triage dialogue. The patient first reported their symptoms, then answered your follow-up questions one at a time.

%sPatient symptoms:
%s

Dialogue so far:
%s
Decide whether you have gathered enough information to conclude. You decide when to stop: keep asking only while another answer would genuinely change your recommendation.

Respond with a JSON object in exactly ONE of these two shapes, never both:

To ask one more question:
{"next_question": "the question", "answer_type": "yes_no or open_text"}

To conclude with a final recommendation:
{"severity_level": "Bénin, Modéré or Urgent", "final_recommendation": "your advice to the patient"}

"answer_type" must be exactly "yes_no" or "open_text". "severity_level" must be exactly "Bénin", "Modéré" or "Urgent". Return ONLY the JSON object, no markdown fences or other text.`

// BuildInitialPrompt assembles the opening prompt. Pure and deterministic:
// identical inputs yield byte-identical output.
func BuildInitialPrompt(symptoms, profileContext string) string {
	return fmt.Sprintf(initialPromptTemplate, contextBlock(profileContext), symptoms, Disclaimer)
}

// BuildRefinePrompt assembles the per-turn refinement prompt, replaying the
// full ordered history as alternating question/answer lines.
func BuildRefinePrompt(symptoms string, history []Turn, profileContext string) string {
	var b strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
	}
	return fmt.Sprintf(refinePromptTemplate, contextBlock(profileContext), symptoms, b.String())
}

// contextBlock renders the optional patient-profile context. The content is
// opaque to the builder: it is prepended verbatim, never parsed or validated.
func contextBlock(profileContext string) string {
	if profileContext == "" {
		return ""
	}
	return "Patient context:\n" + profileContext + "\n\n"
}
