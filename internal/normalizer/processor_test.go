package normalizer

import (
	"errors"
	"testing"

	"casemap/internal/models"
)

const testTitle = "Desvio de verbas em São Paulo"

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p == nil {
		t.Fatal("NewProcessor returned nil")
	}
}

func TestProcessor_Process(t *testing.T) {
	p := NewProcessor()

	result, err := p.Process(&models.Candidate{
		Title:  "  Desvio de verbas em   São Paulo ",
		URL:    "https://exemplo.com/sp",
		Source: "Folha",
	})
	if err != nil {
		t.Fatalf("Process returned unexpected error: %v", err)
	}

	if result.Title != testTitle {
		t.Errorf("Title = %q, want %q", result.Title, testTitle)
	}
}

func TestProcessor_Process_ValidationError(t *testing.T) {
	p := NewProcessor()

	// A placeholder state counts as missing on the manual path.
	result, err := p.Process(&models.Candidate{
		Title: testTitle,
		State: "Nacional",
		URL:   "https://exemplo.com/sp",
		Path:  models.PathManual,
	})
	if err == nil {
		t.Fatal("Process expected error for invalid input")
	}

	if !errors.Is(err, ErrMissingState) {
		t.Errorf("error = %v, want ErrMissingState", err)
	}

	if result != nil {
		t.Error("Process expected nil result for invalid input")
	}
}

func TestProcessor_Process_MarkupOnlyTitle(t *testing.T) {
	_, err := NewProcessor().Process(&models.Candidate{Title: "<br/>  <span></span>"})
	if !errors.Is(err, ErrMissingTitle) {
		t.Errorf("error = %v, want ErrMissingTitle", err)
	}
}

func TestProcessor_Process_Nil(t *testing.T) {
	if _, err := NewProcessor().Process(nil); !errors.Is(err, ErrNilCandidate) {
		t.Errorf("error = %v, want ErrNilCandidate", err)
	}
}
