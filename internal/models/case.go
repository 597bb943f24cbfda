// Package models defines the case records handled by the ingestion pipeline.
package models

import "time"

// CaseRecord is one persisted corruption case.
type CaseRecord struct {
	CreatedAt      time.Time `json:"created_at"`
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Municipality   string    `json:"municipality"`
	Organization   string    `json:"organization"`
	ValueEstimated string    `json:"value_estimated"`
	Status         string    `json:"status"`
	Date           string    `json:"date"`
	Source         string    `json:"source"`
	URL            string    `json:"url"`
	Geography
}

// Geography is the inferred location of a case. Region is only ever derived
// from State; build values with gazetteer.GeographyFor.
type Geography struct {
	State  *string `json:"state"`
	Region *string `json:"region"`
}

// StateName returns the state or "" when absent.
func (g Geography) StateName() string {
	if g.State == nil {
		return ""
	}

	return *g.State
}

// RegionName returns the region or "" when absent.
func (g Geography) RegionName() string {
	if g.Region == nil {
		return ""
	}

	return *g.Region
}

// IsZero reports whether no state was detected.
func (g Geography) IsZero() bool {
	return g.State == nil
}

// Equal compares two geographies by value.
func (g Geography) Equal(other Geography) bool {
	return g.StateName() == other.StateName() &&
		g.RegionName() == other.RegionName() &&
		(g.State == nil) == (other.State == nil) &&
		(g.Region == nil) == (other.Region == nil)
}
