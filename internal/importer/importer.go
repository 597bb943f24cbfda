// Package importer decodes case files (.json arrays or .csv with a header
// row) into candidates for the import path.
package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"casemap/internal/models"
)

// Importer errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported format, use .csv or .json")
	ErrMissingTitleCol   = errors.New("csv header has no title column")
)

// Formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// caseRow mirrors the on-disk case object. Region is read and dropped; it
// is always derived from state.
type caseRow struct {
	Title          models.FlexString `json:"title"`
	Summary        models.FlexString `json:"summary"`
	State          models.FlexString `json:"state"`
	Region         models.FlexString `json:"region"`
	Municipality   models.FlexString `json:"municipality"`
	Organization   models.FlexString `json:"organization"`
	ValueEstimated models.FlexString `json:"value_estimated"`
	Status         models.FlexString `json:"status"`
	Date           models.FlexString `json:"date"`
	Source         models.FlexString `json:"source"`
	URL            models.FlexString `json:"url"`
}

func (r *caseRow) candidate() models.Candidate {
	return models.Candidate{
		Title:          string(r.Title),
		Summary:        string(r.Summary),
		State:          string(r.State),
		Municipality:   string(r.Municipality),
		Organization:   string(r.Organization),
		ValueEstimated: string(r.ValueEstimated),
		Status:         string(r.Status),
		Date:           string(r.Date),
		Source:         string(r.Source),
		URL:            string(r.URL),
		Path:           models.PathImport,
	}
}

// FormatFromPath maps a file extension to a format.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile reads and decodes the file at path by its extension.
func LoadFile(path string) ([]models.Candidate, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads r in the given format. Input that is not valid UTF-8 is read
// as Windows-1252, the usual encoding of spreadsheet exports.
func Decode(r io.Reader, format string) ([]models.Candidate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import data: %w", err)
	}

	data, err = toUTF8(data)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatCSV:
		return decodeCSV(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func toUTF8(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Windows-1252 input: %w", err)
	}

	return decoded, nil
}

func decodeJSON(data []byte) ([]models.Candidate, error) {
	var rows []caseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse JSON cases: %w", err)
	}

	out := make([]models.Candidate, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].candidate())
	}

	return out, nil
}

func decodeCSV(data []byte) ([]models.Candidate, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := cols["title"]; !ok {
		return nil, ErrMissingTitleCol
	}

	var out []models.Candidate

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		if isBlank(record) {
			continue
		}

		get := func(name string) models.FlexString {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}

			return models.FlexString(record[i])
		}

		row := caseRow{
			Title:          get("title"),
			Summary:        get("summary"),
			State:          get("state"),
			Municipality:   get("municipality"),
			Organization:   get("organization"),
			ValueEstimated: get("value_estimated"),
			Status:         get("status"),
			Date:           get("date"),
			Source:         get("source"),
			URL:            get("url"),
		}

		out = append(out, row.candidate())
	}

	return out, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}

// Describe returns a one-line summary of a decoded file for logs.
func Describe(candidates []models.Candidate) string {
	withState := 0

	for _, c := range candidates {
		if strings.TrimSpace(c.State) != "" {
			withState++
		}
	}

	return strconv.Itoa(len(candidates)) + " cases, " + strconv.Itoa(withState) + " with explicit state"
}
