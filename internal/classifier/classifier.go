// Package classifier infers a case's state and region from its URL and text.
package classifier

import (
	"strings"

	"casemap/internal/gazetteer"
	"casemap/internal/models"
	"casemap/internal/normalizer"
)

// Classifier scans the gazetteer alias table against normalized input.
type Classifier struct {
	aliases []gazetteer.Alias
}

// New creates a Classifier over the process-wide alias table.
func New() *Classifier {
	return &Classifier{aliases: gazetteer.Aliases()}
}

// Classify returns the geography detected in url, falling back to title and
// summary. The first alias key contained in the normalized input wins.
func (c *Classifier) Classify(url, title, summary string) models.Geography {
	state, ok := c.DetectState(normalizer.NormalizeForMatch(url))
	if !ok {
		state, ok = c.DetectState(normalizer.NormalizeForMatch(title + " " + summary))
	}

	if !ok {
		return models.Geography{}
	}

	return gazetteer.GeographyFor(state)
}

// ClassifyCandidate classifies a candidate by its URL, title and summary.
func (c *Classifier) ClassifyCandidate(cand *models.Candidate) models.Geography {
	return c.Classify(cand.URL, cand.Title, cand.Summary)
}

// DetectState scans already-normalized text and returns the first matching state.
func (c *Classifier) DetectState(normalized string) (string, bool) {
	if normalized == "" {
		return "", false
	}

	for _, a := range c.aliases {
		if strings.Contains(normalized, a.Key) {
			return a.State, true
		}
	}

	return "", false
}

// Canonicalize maps an explicitly supplied state ("sp", "sao paulo",
// "SÃO PAULO") to its canonical name by exact alias lookup. Unknown values
// are returned trimmed and unchanged.
func Canonicalize(state string) string {
	state = strings.TrimSpace(state)
	if state == "" || gazetteer.IsKnownState(state) {
		return state
	}

	if canonical, ok := gazetteer.Lookup(normalizer.NormalizeForMatch(state)); ok {
		return canonical
	}

	return state
}

// Resolve returns the geography for an explicitly supplied state.
func Resolve(state string) models.Geography {
	return gazetteer.GeographyFor(Canonicalize(state))
}
