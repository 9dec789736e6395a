package orchestrator

import (
	"context"
	"regexp"
	"strings"
)

// Keyword buckets retargeted from lexical/semantic query patterns to intent
// categories: admin verbs name operational actions, tool verbs name
// side-effecting actions, everything else defaults to chat.
var (
	adminPattern = regexp.MustCompile(`(?i)\b(status|health|restart|shutdown|promote|config|configure|metrics|reload|migrate)\b`)
	toolPattern  = regexp.MustCompile(`(?i)\b(run|execute|exec|list|search|find|delete|remove|create|write|read|download|install|build|deploy|fetch)\b`)
)

// PatternClassifier classifies a user turn with keyword-bucket matching.
// It never returns an error and is the fallback classifier when no
// ChatProvider is configured or the provider fails.
type PatternClassifier struct{}

// NewPatternClassifier creates a pattern-based classifier.
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify determines intent using keyword matching.
func (p *PatternClassifier) Classify(_ context.Context, text string) (Classification, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Classification{Intent: IntentChat, Confidence: 0.5}, nil
	}

	if adminPattern.MatchString(text) {
		return Classification{Intent: IntentAdmin, Confidence: 0.7}, nil
	}
	if toolPattern.MatchString(text) {
		return Classification{Intent: IntentTool, Confidence: 0.6, ToolFamilyHint: toolFamilyHint(text)}, nil
	}
	return Classification{Intent: IntentChat, Confidence: 0.55}, nil
}

// toolFamilyHint gives the executor a coarse hint about which tool family a
// tool-classified turn likely needs, without committing to a specific tool.
func toolFamilyHint(text string) string {
	switch {
	case regexp.MustCompile(`(?i)\b(run|execute|exec|build|deploy)\b`).MatchString(text):
		return "shell"
	case regexp.MustCompile(`(?i)\b(search|find)\b`).MatchString(text):
		return "search"
	case regexp.MustCompile(`(?i)\b(delete|remove|create|write|read|download|install|fetch)\b`).MatchString(text):
		return "filesystem"
	default:
		return ""
	}
}
