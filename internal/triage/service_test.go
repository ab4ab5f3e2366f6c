package triage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeOracle struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeOracle) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSaver struct {
	saved []ConsultationRecord
	err   error
}

func (f *fakeSaver) SaveConsultation(_ context.Context, rec ConsultationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, rec)
	return nil
}

type fakeAlerter struct {
	events []ConsultationRecord
	err    error
}

func (f *fakeAlerter) TriageConcluded(_ context.Context, rec ConsultationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, rec)
	return nil
}

func newTestService(oracle Oracle, saver ConsultationSaver, alerter Alerter) *Service {
	return NewService(oracle, saver, alerter, discardLogger())
}

func TestStart_FencedReply(t *testing.T) {
	oracle := &fakeOracle{reply: "```json\n{\"symptom\":\"headache\",\"differential_diagnoses\":[\"migraine\",\"tension\"],\"first_question\":\"Is the pain on one side?\",\"answer_type\":\"yes_no\",\"recommendations\":[\"rest\",\"hydrate\"],\"disclaimer\":\"...\"}\n```"}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	analysis, err := svc.Start(context.Background(), "persistent headache for 3 days", "")
	require.NoError(t, err)
	assert.Equal(t, "headache", analysis.Summary)
	assert.Equal(t, []string{"migraine", "tension"}, analysis.Differentials)
	assert.Equal(t, "Is the pain on one side?", analysis.FirstQuestion)
	assert.Equal(t, AnswerYesNo, analysis.AnswerType)
	assert.Equal(t, []string{"rest", "hydrate"}, analysis.Recommendations)
	assert.Equal(t, "...", analysis.Disclaimer)
}

func TestStart_MissingQuestionFallsBack(t *testing.T) {
	oracle := &fakeOracle{reply: `{"symptom":"cough","differential_diagnoses":["cold"],"recommendations":["rest"],"disclaimer":"d"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	analysis, err := svc.Start(context.Background(), "dry cough", "")
	require.NoError(t, err, "a missing first question must not fail the turn")
	assert.Equal(t, FallbackQuestion, analysis.FirstQuestion)
	assert.Equal(t, AnswerOpenText, analysis.AnswerType)
	assert.Equal(t, "cough", analysis.Summary)
}

func TestStart_MissingRequiredKey(t *testing.T) {
	oracle := &fakeOracle{reply: `{"symptom":"cough","first_question":"q","answer_type":"yes_no","recommendations":["rest"],"disclaimer":"d"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Start(context.Background(), "dry cough", "")
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestStart_InvalidAnswerType(t *testing.T) {
	oracle := &fakeOracle{reply: `{"symptom":"cough","differential_diagnoses":["cold"],"first_question":"q","answer_type":"multiple_choice","recommendations":["rest"],"disclaimer":"d"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Start(context.Background(), "dry cough", "")
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestStart_OracleFailure(t *testing.T) {
	cause := errors.New("connection refused")
	oracle := &fakeOracle{err: cause}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Start(context.Background(), "headache", "")
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
	assert.ErrorIs(t, err, cause, "internal cause stays on the chain for diagnostics")
}

func TestStart_ProfileReachesPrompt(t *testing.T) {
	oracle := &fakeOracle{reply: `{"symptom":"s","differential_diagnoses":[],"first_question":"q","answer_type":"yes_no","recommendations":[],"disclaimer":"d"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Start(context.Background(), "headache", "Age: 50")
	require.NoError(t, err)
	require.Len(t, oracle.prompts, 1)
	assert.Contains(t, oracle.prompts[0], "Age: 50")
}

func TestAdvance_AskQuestion(t *testing.T) {
	oracle := &fakeOracle{reply: `{"next_question": "Do you have nausea?", "answer_type": "yes_no"}`}
	saver := &fakeSaver{}
	svc := newTestService(oracle, saver, nil)

	outcome, err := svc.Advance(context.Background(), uuid.New(), "headache", []Turn{{Question: "q1", Answer: "a1"}}, "")
	require.NoError(t, err)
	require.NotNil(t, outcome.Decision.Ask)
	assert.Nil(t, outcome.Decision.Final)
	assert.Equal(t, "Do you have nausea?", outcome.Decision.Ask.Text)
	assert.Equal(t, AnswerYesNo, outcome.Decision.Ask.AnswerType)
	assert.Empty(t, saver.saved, "no consultation is created for an intermediate turn")
}

func TestAdvance_FinalRecommendationPersists(t *testing.T) {
	oracle := &fakeOracle{reply: `{"severity_level": "Urgent", "final_recommendation": "Seek emergency care immediately."}`}
	saver := &fakeSaver{}
	alerter := &fakeAlerter{}
	svc := newTestService(oracle, saver, alerter)
	owner := uuid.New()

	outcome, err := svc.Advance(context.Background(), owner, "crushing chest pain", []Turn{{Question: "q", Answer: "a"}}, "")
	require.NoError(t, err)
	require.NotNil(t, outcome.Decision.Final)
	assert.Nil(t, outcome.Decision.Ask)
	assert.Equal(t, SeverityUrgent, outcome.Decision.Final.Severity)
	assert.Equal(t, "Seek emergency care immediately.", outcome.Decision.Final.Recommendation)

	require.Len(t, saver.saved, 1, "exactly one consultation record is persisted")
	rec := saver.saved[0]
	assert.Equal(t, owner, rec.OwnerID)
	assert.Equal(t, "crushing chest pain", rec.Symptoms)
	assert.Equal(t, SeverityUrgent, rec.Severity)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	require.Len(t, alerter.events, 1)
	assert.Equal(t, rec.ID, alerter.events[0].ID)
}

func TestAdvance_ProseReply(t *testing.T) {
	oracle := &fakeOracle{reply: "I am not able to provide a diagnosis over chat."}
	saver := &fakeSaver{}
	svc := newTestService(oracle, saver, nil)

	_, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	assert.ErrorIs(t, err, ErrAnalysisUnavailable)
	assert.ErrorIs(t, err, ErrNoObjectFound)
	assert.Empty(t, saver.saved, "zero persistence side effects on failure")
}

func TestAdvance_BothShapes(t *testing.T) {
	oracle := &fakeOracle{reply: `{"next_question":"q","answer_type":"yes_no","severity_level":"Bénin","final_recommendation":"rest"}`}
	saver := &fakeSaver{}
	svc := newTestService(oracle, saver, nil)

	_, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.NotErrorIs(t, err, ErrAnalysisUnavailable, "a contract violation is reported distinctly from a parse failure")
	assert.Empty(t, saver.saved)
}

func TestAdvance_NeitherShape(t *testing.T) {
	oracle := &fakeOracle{reply: `{"note": "thinking about it"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestAdvance_UnknownSeverity(t *testing.T) {
	oracle := &fakeOracle{reply: `{"severity_level": "Catastrophique", "final_recommendation": "run"}`}
	saver := &fakeSaver{}
	svc := newTestService(oracle, saver, nil)

	_, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	assert.ErrorIs(t, err, ErrContractViolation)
	assert.Empty(t, saver.saved)
}

func TestAdvance_UnknownAnswerType(t *testing.T) {
	oracle := &fakeOracle{reply: `{"next_question": "scale of 1-10?", "answer_type": "numeric"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	_, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestAdvance_StorageFailureDoesNotMaskDecision(t *testing.T) {
	oracle := &fakeOracle{reply: `{"severity_level": "Modéré", "final_recommendation": "See your GP this week."}`}
	saver := &fakeSaver{err: errors.New("connection reset")}
	svc := newTestService(oracle, saver, nil)

	outcome, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	require.NoError(t, err, "the decision is already computed; storage failure is a separate channel")
	require.NotNil(t, outcome.Decision.Final)
	assert.Equal(t, SeverityModerate, outcome.Decision.Final.Severity)
	assert.Error(t, outcome.StorageErr)
}

func TestAdvance_AlertFailureIgnored(t *testing.T) {
	oracle := &fakeOracle{reply: `{"severity_level": "Bénin", "final_recommendation": "Rest and hydrate."}`}
	saver := &fakeSaver{}
	alerter := &fakeAlerter{err: errors.New("nats: connection closed")}
	svc := newTestService(oracle, saver, alerter)

	outcome, err := svc.Advance(context.Background(), uuid.New(), "headache", nil, "")
	require.NoError(t, err)
	assert.NoError(t, outcome.StorageErr)
	require.Len(t, saver.saved, 1)
}

func TestAdvance_HistoryReplayedIntoPrompt(t *testing.T) {
	oracle := &fakeOracle{reply: `{"next_question": "q", "answer_type": "open_text"}`}
	svc := newTestService(oracle, &fakeSaver{}, nil)

	history := []Turn{
		{Question: "Is the pain on one side?", Answer: "yes"},
		{Question: "Do you have nausea?", Answer: "no"},
	}
	_, err := svc.Advance(context.Background(), uuid.New(), "headache", history, "")
	require.NoError(t, err)
	require.Len(t, oracle.prompts, 1)
	assert.True(t, strings.Contains(oracle.prompts[0], "Q: Is the pain on one side?\nA: yes"))
	assert.True(t, strings.Contains(oracle.prompts[0], "Q: Do you have nausea?\nA: no"))
}
