package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrAnalysisUnavailable is the single opaque failure surfaced to callers
// when the oracle path breaks. The internal kind is logged, never required
// for correct external behavior.
var ErrAnalysisUnavailable = errors.New("ai analysis unavailable")

// ErrContractViolation is returned when the oracle reply parses as JSON but
// does not honor the prompt contract: both or neither decision shape, or a
// label outside the fixed enumerations. Distinct from a parse failure.
var ErrContractViolation = errors.New("oracle reply violates the response contract")

// Oracle is the single call-out boundary to the generative-text service.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConsultationRecord is the terminal outcome of a concluded dialogue, handed
// to the persistence collaborator.
type ConsultationRecord struct {
	ID             uuid.UUID `json:"id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	Symptoms       string    `json:"symptoms"`
	Recommendation string    `json:"recommendation"`
	Severity       Severity  `json:"severity_level"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConsultationSaver persists concluded consultations.
type ConsultationSaver interface {
	SaveConsultation(ctx context.Context, rec ConsultationRecord) error
}

// Alerter is notified when a dialogue concludes. Optional collaborator; a
// failure here is logged and never affects the decision.
type Alerter interface {
	TriageConcluded(ctx context.Context, rec ConsultationRecord) error
}

// Service drives the dialogue-refinement loop: build prompt, invoke oracle,
// extract JSON, classify. It holds no per-session state; every call derives
// the dialogue state from the inputs.
type Service struct {
	oracle        Oracle
	consultations ConsultationSaver
	alerts        Alerter
	logger        *slog.Logger
}

func NewService(oracle Oracle, consultations ConsultationSaver, alerts Alerter, logger *slog.Logger) *Service {
	return &Service{
		oracle:        oracle,
		consultations: consultations,
		alerts:        alerts,
		logger:        logger,
	}
}

// Start opens a dialogue: one oracle call producing the initial analysis and
// the first follow-up question.
//
// An absent or empty first question degrades to FallbackQuestion instead of
// failing the turn; the rest of the reply is still served.
func (s *Service) Start(ctx context.Context, symptoms, profileContext string) (*InitialAnalysis, error) {
	prompt := BuildInitialPrompt(symptoms, profileContext)

	raw, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("oracle call failed", "phase", "start", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		s.logger.Error("extraction failed", "phase", "start", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}

	analysis := &InitialAnalysis{}
	var ok bool
	if analysis.Summary, ok = stringField(obj, "symptom"); !ok {
		return nil, fmt.Errorf("%w: missing symptom summary", ErrContractViolation)
	}
	if analysis.Differentials, ok = stringListField(obj, "differential_diagnoses"); !ok {
		return nil, fmt.Errorf("%w: missing differential diagnoses", ErrContractViolation)
	}
	if analysis.Recommendations, ok = stringListField(obj, "recommendations"); !ok {
		return nil, fmt.Errorf("%w: missing recommendations", ErrContractViolation)
	}
	if analysis.Disclaimer, ok = stringField(obj, "disclaimer"); !ok {
		return nil, fmt.Errorf("%w: missing disclaimer", ErrContractViolation)
	}

	question, _ := stringField(obj, "first_question")
	answerType, hasType := stringField(obj, "answer_type")
	if question == "" {
		// Degraded-but-available: serve the rest of the analysis with a
		// generic follow-up rather than failing the whole turn.
		s.logger.Warn("oracle omitted first question, using fallback")
		analysis.FirstQuestion = FallbackQuestion
		analysis.AnswerType = AnswerOpenText
		return analysis, nil
	}
	analysis.FirstQuestion = question
	if !hasType || answerType == "" {
		analysis.AnswerType = AnswerOpenText
	} else if at := AnswerType(answerType); at.Valid() {
		analysis.AnswerType = at
	} else {
		return nil, fmt.Errorf("%w: unknown answer_type %q", ErrContractViolation, answerType)
	}

	return analysis, nil
}

// AdvanceOutcome carries the oracle's decision plus the separate storage
// error channel: a failed consultation write never masks the decision.
type AdvanceOutcome struct {
	Decision   Decision
	StorageErr error
}

// Advance replays the full history to the oracle and classifies its reply as
// either one more question or a final recommendation. When the dialogue
// concludes, exactly one consultation record is persisted for the owner
// before the decision is returned.
func (s *Service) Advance(ctx context.Context, ownerID uuid.UUID, symptoms string, history []Turn, profileContext string) (*AdvanceOutcome, error) {
	prompt := BuildRefinePrompt(symptoms, history, profileContext)

	raw, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("oracle call failed", "phase", "advance", "turns", len(history), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}

	obj, err := ExtractJSON(raw)
	if err != nil {
		s.logger.Error("extraction failed", "phase", "advance", "turns", len(history), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}

	decision, err := classify(obj)
	if err != nil {
		s.logger.Error("oracle broke the response contract", "phase", "advance", "error", err)
		return nil, err
	}

	outcome := &AdvanceOutcome{Decision: *decision}
	if decision.Final == nil {
		return outcome, nil
	}

	rec := ConsultationRecord{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Symptoms:       symptoms,
		Recommendation: decision.Final.Recommendation,
		Severity:       decision.Final.Severity,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.consultations.SaveConsultation(ctx, rec); err != nil {
		s.logger.Error("failed to save consultation", "owner", ownerID, "error", err)
		outcome.StorageErr = err
	}
	if s.alerts != nil {
		if err := s.alerts.TriageConcluded(ctx, rec); err != nil {
			s.logger.Warn("failed to publish triage alert", "owner", ownerID, "error", err)
		}
	}

	return outcome, nil
}

// classify requires the reply to populate exactly one of the two decision
// shapes, with labels from the fixed enumerations.
func classify(obj map[string]any) (*Decision, error) {
	question, hasQuestion := stringField(obj, "next_question")
	recommendation, hasRecommendation := stringField(obj, "final_recommendation")
	severity, hasSeverity := stringField(obj, "severity_level")
	isFinal := hasRecommendation || hasSeverity

	switch {
	case hasQuestion && isFinal:
		return nil, fmt.Errorf("%w: both question and recommendation present", ErrContractViolation)
	case !hasQuestion && !isFinal:
		return nil, fmt.Errorf("%w: neither question nor recommendation present", ErrContractViolation)
	case hasQuestion:
		answerType, ok := stringField(obj, "answer_type")
		if !ok || !AnswerType(answerType).Valid() {
			return nil, fmt.Errorf("%w: unknown answer_type %q", ErrContractViolation, answerType)
		}
		return &Decision{Ask: &FollowUpQuestion{Text: question, AnswerType: AnswerType(answerType)}}, nil
	default:
		if !hasRecommendation || recommendation == "" {
			return nil, fmt.Errorf("%w: missing final_recommendation", ErrContractViolation)
		}
		if !Severity(severity).Valid() {
			return nil, fmt.Errorf("%w: unknown severity_level %q", ErrContractViolation, severity)
		}
		return &Decision{Final: &FinalRecommendation{Severity: Severity(severity), Recommendation: recommendation}}, nil
	}
}

func stringField(obj map[string]any, key string) (string, bool) {
	v, ok := obj[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringListField(obj map[string]any, key string) ([]string, bool) {
	v, ok := obj[key]
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
