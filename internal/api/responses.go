package api

import (
	"encoding/json"
	"net/http"

	"casemap/internal/models"
)

const (
	msgDuplicate = "duplicate case"
	msgInternal  = "internal server error"
)

// AddCaseRequest is the body of POST /api/add-case. Region is accepted and
// ignored; it is derived from state.
type AddCaseRequest struct {
	Title          string            `json:"title"`
	Summary        string            `json:"summary"`
	State          string            `json:"state"`
	Region         string            `json:"region"`
	Municipality   string            `json:"municipality"`
	Organization   string            `json:"organization"`
	ValueEstimated models.FlexString `json:"value_estimated"`
	Status         string            `json:"status"`
	Date           string            `json:"date"`
	Source         string            `json:"source"`
	URL            string            `json:"url"`
}

// Candidate converts the request into a manual-path candidate.
func (r *AddCaseRequest) Candidate() models.Candidate {
	return models.Candidate{
		Title:          r.Title,
		Summary:        r.Summary,
		State:          r.State,
		Municipality:   r.Municipality,
		Organization:   r.Organization,
		ValueEstimated: string(r.ValueEstimated),
		Status:         r.Status,
		Date:           r.Date,
		Source:         r.Source,
		URL:            r.URL,
		Path:           models.PathManual,
	}
}

// AddCaseResponse is returned on a successful insert.
type AddCaseResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
