package normalizer

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"casemap/internal/gazetteer"
	"casemap/internal/models"
)

// Transformer cleans candidate fields before validation.
type Transformer struct {
	policy *bluemonday.Policy
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Transform returns a cleaned copy of c. Markup is stripped from title and
// summary, whitespace is collapsed, and placeholder states are dropped.
func (t *Transformer) Transform(c *models.Candidate) *models.Candidate {
	out := *c

	out.Title = t.plainText(c.Title)
	out.Summary = t.plainText(c.Summary)
	out.Source = NormalizeText(c.Source)
	out.Municipality = NormalizeText(c.Municipality)
	out.Organization = NormalizeText(c.Organization)
	out.Status = NormalizeText(c.Status)
	out.ValueEstimated = strings.TrimSpace(c.ValueEstimated)
	out.Date = strings.TrimSpace(c.Date)
	out.URL = strings.TrimSpace(c.URL)
	out.State = NormalizeText(c.State)

	if gazetteer.IsSentinel(out.State) {
		out.State = ""
	}

	return &out
}

// plainText strips tags, decodes entities and collapses whitespace.
func (t *Transformer) plainText(s string) string {
	if s == "" {
		return ""
	}

	s = strings.ToValidUTF8(s, "")
	if strings.ContainsAny(s, "<&") {
		s = html.UnescapeString(t.policy.Sanitize(s))
	}

	return NormalizeText(s)
}
