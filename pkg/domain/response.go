package domain

// Intent is the classified purpose of a patient utterance. Classification
// happens outside the engine; the engine only consumes the resulting tag.
// IntentUnknown and IntentInvalid are reserved: a response carrying either
// is never treated as clear, regardless of confidence.
type Intent string

const (
	IntentGreeting           Intent = "greeting"
	IntentTestComplete       Intent = "test_complete"
	IntentVisionReported     Intent = "vision_reported"
	IntentHealthCheck        Intent = "health_check"
	IntentAlignmentOK        Intent = "alignment_ok"
	IntentPDReady            Intent = "pd_ready"
	IntentRefractionFeedback Intent = "refraction_feedback"
	IntentReadingAbility     Intent = "reading_ability"
	IntentPrescriptionOK     Intent = "prescription_ok"
	IntentProductChoice      Intent = "product_choice"
	IntentHealthQuestion     Intent = "health_question"
	IntentDiscomfortReport   Intent = "discomfort_report"
	IntentUnknown            Intent = "unknown"
	IntentInvalid            Intent = "invalid"
)

// IsValid reports whether the intent belongs to the fixed vocabulary.
func (i Intent) IsValid() bool {
	switch i {
	case IntentGreeting, IntentTestComplete, IntentVisionReported,
		IntentHealthCheck, IntentAlignmentOK, IntentPDReady,
		IntentRefractionFeedback, IntentReadingAbility, IntentPrescriptionOK,
		IntentProductChoice, IntentHealthQuestion, IntentDiscomfortReport,
		IntentUnknown, IntentInvalid:
		return true
	}
	return false
}

// Unusable reports whether the intent can never produce a clear verdict.
func (i Intent) Unusable() bool {
	return i == IntentUnknown || i == IntentInvalid
}

// Sentiment is the classified emotional tone of an utterance. It feeds only
// the safety monitor's fatigue heuristic.
type Sentiment string

const (
	SentimentNeutral        Sentiment = "neutral"
	SentimentConfident      Sentiment = "confident"
	SentimentUnderConfident Sentiment = "under_confident"
	SentimentConfused       Sentiment = "confused"
	SentimentOverconfident  Sentiment = "overconfident"
	SentimentFatigued       Sentiment = "fatigued"
)

// IsValid reports whether the sentiment belongs to the fixed vocabulary.
func (s Sentiment) IsValid() bool {
	switch s {
	case SentimentNeutral, SentimentConfident, SentimentUnderConfident,
		SentimentConfused, SentimentOverconfident, SentimentFatigued:
		return true
	}
	return false
}

// ClassifiedResponse is the engine's per-turn input: a patient utterance
// already classified by the NLU collaborator. ElapsedSeconds is the session
// clock as seen by the caller; the engine owns no clock of its own.
// HesitationSeconds is the pause before the patient answered, measured by
// the voice collaborator; it feeds only the fatigue heuristic.
type ClassifiedResponse struct {
	Intent            Intent            `json:"intent" validate:"required"`
	Confidence        float64           `json:"confidence" validate:"gte=0,lte=1"`
	Slots             map[string]string `json:"slots,omitempty"`
	Sentiment         Sentiment         `json:"sentiment,omitempty"`
	RedFlag           bool              `json:"red_flag"`
	PersonaOverride   bool              `json:"persona_override"`
	ElapsedSeconds    float64           `json:"elapsed_seconds" validate:"gte=0"`
	HesitationSeconds float64           `json:"hesitation_seconds,omitempty" validate:"gte=0"`
}

// Slot returns the value for a slot key, and whether it was present.
func (r *ClassifiedResponse) Slot(key string) (string, bool) {
	v, ok := r.Slots[key]
	return v, ok
}
