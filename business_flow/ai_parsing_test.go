package businessflow

import (
	"testing"

	"github.com/casaflow/casaflow/models"
	"github.com/stretchr/testify/assert"
)

func TestExtractJSONObject(t *testing.T) {
	t.Run("PlainObject", func(t *testing.T) {
		obj, ok := ExtractJSONObject(`{"score": 80}`)
		assert.True(t, ok)
		assert.Equal(t, `{"score": 80}`, obj)
	})

	t.Run("MarkdownFence", func(t *testing.T) {
		raw := "Here is the verdict:\n```json\n{\"score\": 72, \"priority\": \"high\"}\n```\nLet me know if you need more."
		obj, ok := ExtractJSONObject(raw)
		assert.True(t, ok)
		assert.JSONEq(t, `{"score": 72, "priority": "high"}`, obj)
	})

	t.Run("NestedObjects", func(t *testing.T) {
		raw := `prefix {"next_action": {"action": "call", "deadline_hours": 4}} suffix`
		obj, ok := ExtractJSONObject(raw)
		assert.True(t, ok)
		assert.JSONEq(t, `{"next_action": {"action": "call", "deadline_hours": 4}}`, obj)
	})

	t.Run("BracesInsideStrings", func(t *testing.T) {
		raw := `{"summary": "budget is {tight} but intent is real"}`
		obj, ok := ExtractJSONObject(raw)
		assert.True(t, ok)
		assert.Equal(t, raw, obj)
	})

	t.Run("EscapedQuoteInsideString", func(t *testing.T) {
		raw := `{"summary": "asked about the \"penthouse\" unit"}`
		obj, ok := ExtractJSONObject(raw)
		assert.True(t, ok)
		assert.Equal(t, raw, obj)
	})

	t.Run("NoObject", func(t *testing.T) {
		_, ok := ExtractJSONObject("I am sorry, I cannot answer that.")
		assert.False(t, ok)
	})

	t.Run("UnbalancedObject", func(t *testing.T) {
		_, ok := ExtractJSONObject(`{"score": 80`)
		assert.False(t, ok)
	})
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0, clampScore(-5))
	assert.Equal(t, 0, clampScore(0))
	assert.Equal(t, 67, clampScore(67))
	assert.Equal(t, 100, clampScore(100))
	assert.Equal(t, 100, clampScore(140))
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, models.LeadPriorityCritical, normalizePriority("critical"))
	assert.Equal(t, models.LeadPriorityHigh, normalizePriority(" HIGH "))
	assert.Equal(t, models.LeadPriorityLow, normalizePriority("low"))
	assert.Equal(t, models.LeadPriorityMedium, normalizePriority("urgent-ish"))
	assert.Equal(t, models.LeadPriorityMedium, normalizePriority(""))
}

func TestNormalizeFollowUpChannel(t *testing.T) {
	assert.Equal(t, models.InteractionChannelEmail, normalizeFollowUpChannel("Email"))
	assert.Equal(t, models.InteractionChannelPhone, normalizeFollowUpChannel("phone"))
	assert.Equal(t, models.InteractionChannelVisit, normalizeFollowUpChannel("visit"))
	assert.Equal(t, models.InteractionChannelWhatsApp, normalizeFollowUpChannel("telegram"))
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, clampConfidence(-0.2))
	assert.Equal(t, 0.85, clampConfidence(0.85))
	assert.Equal(t, 1.0, clampConfidence(1.7))
}
