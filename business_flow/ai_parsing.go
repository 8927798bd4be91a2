package businessflow

import (
	"strings"

	"github.com/casaflow/casaflow/models"
)

// ExtractJSONObject pulls the first balanced JSON object out of free-form
// model output. Providers wrap JSON in prose or markdown fences often enough
// that a plain Unmarshal of the whole answer is not reliable.
func ExtractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return "", false
}

// clampScore forces a model-reported score into the 0..100 range
func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// normalizePriority maps free-form priority strings onto the known set,
// defaulting to medium
func normalizePriority(raw string) models.LeadPriority {
	p := models.LeadPriority(strings.ToLower(strings.TrimSpace(raw)))
	if p.Valid() {
		return p
	}
	return models.LeadPriorityMedium
}

// normalizeFollowUpChannel keeps follow-up channels inside the interaction
// channel vocabulary, defaulting to whatsapp
func normalizeFollowUpChannel(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.InteractionChannelEmail:
		return models.InteractionChannelEmail
	case models.InteractionChannelPhone:
		return models.InteractionChannelPhone
	case models.InteractionChannelWhatsApp:
		return models.InteractionChannelWhatsApp
	case models.InteractionChannelVisit:
		return models.InteractionChannelVisit
	default:
		return models.InteractionChannelWhatsApp
	}
}

// clampConfidence forces a confidence value into 0..1
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
