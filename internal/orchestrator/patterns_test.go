package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternClassifier_ClassifiesAdminVerbs(t *testing.T) {
	// Given: a pattern classifier
	p := NewPatternClassifier()

	// When: an admin-shaped turn is classified
	c, err := p.Classify(context.Background(), "what is the health status of the promotion cycle?")

	// Then: it is classified as admin
	require.NoError(t, err)
	assert.Equal(t, IntentAdmin, c.Intent)
}

func TestPatternClassifier_ClassifiesToolVerbsWithShellHint(t *testing.T) {
	// Given: a pattern classifier
	p := NewPatternClassifier()

	// When: a shell-shaped tool turn is classified
	c, err := p.Classify(context.Background(), "run the deploy script")

	// Then: it is classified as tool with a shell family hint
	require.NoError(t, err)
	assert.Equal(t, IntentTool, c.Intent)
	assert.Equal(t, "shell", c.ToolFamilyHint)
}

func TestPatternClassifier_ClassifiesToolVerbsWithSearchHint(t *testing.T) {
	// Given: a pattern classifier
	p := NewPatternClassifier()

	// When: a search-shaped tool turn is classified
	c, err := p.Classify(context.Background(), "search for the missing record")

	// Then: it is classified as tool with a search family hint
	require.NoError(t, err)
	assert.Equal(t, IntentTool, c.Intent)
	assert.Equal(t, "search", c.ToolFamilyHint)
}

func TestPatternClassifier_DefaultsToChatForPlainText(t *testing.T) {
	// Given: a pattern classifier
	p := NewPatternClassifier()

	// When: an ordinary conversational turn is classified
	c, err := p.Classify(context.Background(), "how are you today")

	// Then: it defaults to chat
	require.NoError(t, err)
	assert.Equal(t, IntentChat, c.Intent)
}

func TestPatternClassifier_EmptyTextDefaultsToChat(t *testing.T) {
	// Given: a pattern classifier
	p := NewPatternClassifier()

	// When: empty text is classified
	c, err := p.Classify(context.Background(), "   ")

	// Then: it defaults to chat without error
	require.NoError(t, err)
	assert.Equal(t, IntentChat, c.Intent)
}
