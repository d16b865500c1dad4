package classify

import (
	"regexp"
	"strings"

	"github.com/kharven/refract/internal/engine"
	"github.com/kharven/refract/pkg/domain"
)

// Classify analyzes one utterance against the current protocol step and
// returns the structured response the engine consumes. The step may be nil;
// step-specific extraction (answer options, balance choices) is skipped then.
// ElapsedSeconds and HesitationSeconds are left zero; the caller owns the
// session clock.
func Classify(step *domain.ProtocolStep, utterance string) (*domain.ClassifiedResponse, error) {
	clean, err := Sanitize(utterance)
	if err != nil {
		return nil, err
	}
	lower := strings.ToLower(clean)

	resp := &domain.ClassifiedResponse{
		Slots:           extractSlots(step, lower),
		Sentiment:       detectSentiment(lower),
		RedFlag:         matchesAny(lower, redFlagKeywords),
		PersonaOverride: matchesAny(lower, overridePatterns),
	}

	// An utterance that matches one of the step's scripted answers is
	// classified with high confidence; free text goes through the
	// priority-ordered keyword tables.
	if opt, ok := matchOption(step, lower); ok {
		resp.Intent = optionIntent(step, opt)
		resp.Confidence = 0.95
	} else {
		resp.Intent = detectIntent(lower)
		resp.Confidence = confidence(lower, resp.Intent)
	}
	return resp, nil
}

// Word-boundary groups for the high-priority intents. The remaining intent
// tables match on plain substrings, which deliberately lets "reading" match
// "read" the way the looser vocabularies expect.
var (
	refractionWords = wordGroup("first", "second", "both", "clearer", "sharper",
		"better", "worse", "red", "green", "equal", "balance", "balanced")
	greetingWords = wordGroup("hello", "hi", "hey", "good morning",
		"good afternoon", "good evening", "greetings")
	completionWords = wordGroup("done", "finished", "complete", "ready",
		"confirm", "go ahead", "proceed", "start", "begin")
)

func wordGroup(words ...string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// detectIntent walks the intent tables in fixed priority order. Refraction
// feedback outranks everything else so that lens comparisons are never
// misread as small talk mid-exam.
func detectIntent(lower string) domain.Intent {
	switch {
	case refractionWords.MatchString(lower):
		return domain.IntentRefractionFeedback
	case greetingWords.MatchString(lower):
		return domain.IntentGreeting
	case completionWords.MatchString(lower):
		return domain.IntentTestComplete
	}

	if matchesAny(lower, []string{"can see", "vision", "see", "read", "visible", "appears", "looks"}) &&
		!matchesAny(lower, []string{"first", "second", "better", "clearer", "red", "green"}) {
		return domain.IntentVisionReported
	}
	if matchesAny(lower, []string{"healthy", "normal", "fine", "good", "okay", "no problem", "clear"}) &&
		!matchesAny(lower, []string{"lens", "better", "clearer", "sharper"}) {
		return domain.IntentHealthCheck
	}
	if matchesAny(lower, []string{"read", "reading", "small text", "comfortable", "strain"}) {
		return domain.IntentReadingAbility
	}
	if matchesAny(lower, []string{"measured", "measurement done", "pd ready"}) {
		return domain.IntentPDReady
	}
	if matchesAny(lower, []string{"aligned", "straight", "no deviation", "alignment"}) {
		return domain.IntentAlignmentOK
	}
	if matchesAny(lower, []string{"feels good", "comfortable", "perfect", "prescription good"}) {
		return domain.IntentPrescriptionOK
	}
	if matchesAny(lower, []string{"progressive", "bifocal", "single", "coating", "lens choice"}) {
		return domain.IntentProductChoice
	}
	return domain.IntentUnknown
}

// extractSlots pulls the structured values the step machine keys on. Device
// steps consume clarity_feedback, color_preference and balance_choice; the
// remaining slots are informational and pass through untouched.
func extractSlots(step *domain.ProtocolStep, lower string) map[string]string {
	slots := make(map[string]string)

	switch {
	case matchesAny(lower, []string{"first", "option 1", "left one", "1st"}):
		slots[engine.SlotClarity] = engine.ChoiceFirstBetter
	case matchesAny(lower, []string{"second", "option 2", "right one", "2nd"}):
		slots[engine.SlotClarity] = engine.ChoiceSecondBetter
	case matchesAny(lower, []string{"both", "same", "equal"}):
		slots[engine.SlotClarity] = engine.ChoiceBothSame
	}

	red := strings.Contains(lower, "red")
	green := strings.Contains(lower, "green")
	switch {
	case red && green:
		slots[engine.SlotColor] = engine.ChoiceBoth
	case red:
		slots[engine.SlotColor] = engine.ChoiceRed
	case green:
		slots[engine.SlotColor] = engine.ChoiceGreen
	}

	if step != nil && step.Action == domain.StepActionBalance {
		switch {
		case strings.Contains(lower, "right"):
			slots[engine.SlotBalance] = engine.ChoiceODClearer
		case strings.Contains(lower, "left"):
			slots[engine.SlotBalance] = engine.ChoiceOSClearer
		case matchesAny(lower, []string{"equal", "same", "both", "balanced"}):
			slots[engine.SlotBalance] = engine.ChoiceEqual
		}
	}

	switch {
	case matchesAny(lower, []string{"comfortable", "good", "perfect", "better"}):
		slots["comfort"] = "comfortable"
	case matchesAny(lower, []string{"uncomfortable", "strain", "tired"}):
		slots["comfort"] = "uncomfortable"
	}
	if matchesAny(lower, []string{"healthy", "normal", "fine", "okay"}) {
		slots["health_status"] = "normal"
	}
	if matchesAny(lower, []string{"read", "see", "clear"}) {
		slots["reading_ability"] = "able"
	}

	if len(slots) == 0 {
		return nil
	}
	return slots
}

var sentimentMarkers = []struct {
	tag     domain.Sentiment
	markers []string
}{
	{domain.SentimentConfident, []string{"definitely", "clearly", "sure", "absolutely", "yes sure"}},
	{domain.SentimentUnderConfident, []string{"maybe", "somewhat", "might", "could be", "possibly", "i think"}},
	{domain.SentimentConfused, []string{"what", "how", "confused", "don't understand", "again", "repeat"}},
	{domain.SentimentOverconfident, []string{"obviously", "clearly", "of course", "definitely"}},
	{domain.SentimentFatigued, []string{"tired", "exhausted", "hard", "difficult", "struggling", "tired eyes"}},
}

// detectSentiment scores every marker table and picks the highest. Ties go
// to the earlier table, so plain "definitely" reads as confident rather than
// overconfident. No markers at all defaults to confident.
func detectSentiment(lower string) domain.Sentiment {
	best := domain.SentimentConfident
	bestScore := 0
	for _, entry := range sentimentMarkers {
		score := 0
		for _, m := range entry.markers {
			if strings.Contains(lower, m) {
				score++
			}
		}
		if score > bestScore {
			best = entry.tag
			bestScore = score
		}
	}
	return best
}

// redFlagKeywords halt the exam outright when present; the vocabulary errs
// toward over-triggering because a false halt only costs a referral.
var redFlagKeywords = []string{
	"pain", "severe", "sudden", "loss", "flashing", "floaters", "infection",
	"discharge", "bleeding", "trauma", "emergency", "urgent", "critical",
	"vision loss", "light sensitivity", "persistent", "worsening",
}

// overridePatterns catch attempts to talk the operator out of its role.
var overridePatterns = []string{
	"act as", "pretend", "be someone else", "switch", "different persona",
	"roleplay", "character", "forget you're", "stop being", "become a",
	"play the role", "talk like", "respond as", "mimic a",
}

// intentVocab is the keyword-density vocabulary behind the confidence score.
// It is looser than the detection tables on purpose; extra matches only
// raise confidence, they never change the intent.
var intentVocab = map[domain.Intent][]string{
	domain.IntentTestComplete:       {"done", "finished", "complete", "ready", "confirm", "yes"},
	domain.IntentVisionReported:     {"clear", "blurry", "sharp", "fuzzy", "better", "worse", "same"},
	domain.IntentHealthCheck:        {"healthy", "normal", "good", "fine"},
	domain.IntentAlignmentOK:        {"aligned", "straight", "no deviation", "normal", "okay"},
	domain.IntentPDReady:            {"measured", "ready", "done", "set"},
	domain.IntentRefractionFeedback: {"first", "second", "both", "clearer", "sharper", "better"},
	domain.IntentReadingAbility:     {"read", "comfortable", "strain", "difficulty", "easy"},
	domain.IntentPrescriptionOK:     {"good", "comfortable", "feels", "okay", "perfect"},
	domain.IntentProductChoice:      {"single", "progressive", "bifocal", "lens", "coating"},
}

// confidence scores a rule-classified utterance: 0.5 for unknown, otherwise
// a 0.7 base plus 0.05 per matched vocabulary keyword, capped at 0.99.
func confidence(lower string, intent domain.Intent) float64 {
	if intent.Unusable() {
		return 0.5
	}
	matches := 0
	for _, kw := range intentVocab[intent] {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	boost := 0.05 * float64(matches)
	if boost > 0.25 {
		boost = 0.25
	}
	c := 0.7 + boost
	if c > 0.99 {
		c = 0.99
	}
	return c
}

// optionSynonyms widen the scripted answers so natural phrasings still hit.
var optionSynonyms = map[string][]string{
	"hello":  {"hi", "hey", "greetings", "good morning", "ready to start"},
	"ready":  {"start", "begin", "go", "proceed", "ready to start"},
	"clear":  {"sharp", "visible", "can see", "good"},
	"better": {"clearer", "sharper", "preferred"},
	"same":   {"equal", "no difference", "balanced"},
}

// matchOption fuzzy-matches the utterance against the step's scripted
// answers, directly or through the synonym table.
func matchOption(step *domain.ProtocolStep, lower string) (string, bool) {
	if step == nil {
		return "", false
	}
	for _, option := range step.Options {
		optLower := strings.ToLower(option)
		if strings.Contains(lower, optLower) {
			return option, true
		}
		for base, variants := range optionSynonyms {
			if !strings.Contains(optLower, base) {
				continue
			}
			for _, v := range variants {
				if strings.Contains(lower, v) {
					return option, true
				}
			}
		}
	}
	return "", false
}

// optionIntent maps a matched scripted answer back onto an intent tag.
func optionIntent(step *domain.ProtocolStep, option string) domain.Intent {
	optLower := strings.ToLower(option)
	switch {
	case matchesAny(optLower, []string{"hello", "hi", "start", "ready"}):
		if step.ID == "0.1" {
			return domain.IntentGreeting
		}
		return domain.IntentTestComplete
	case matchesAny(optLower, []string{"first", "second", "both", "same", "balanced", "equal", "clearer"}):
		return domain.IntentRefractionFeedback
	case matchesAny(optLower, []string{"see", "read", "clear", "visible"}):
		return domain.IntentVisionReported
	case matchesAny(optLower, []string{"healthy", "normal", "fine"}):
		return domain.IntentHealthCheck
	}
	return domain.IntentTestComplete
}

func matchesAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
