// Package model defines the core domain types for the segmint application.
package model

import (
	"time"
)

// Customer is an immutable reference entity created by CSV ingestion.
type Customer struct {
	BirthDate    time.Time
	CustomerID   string
	FirstName    string
	LastName     string
	Gender       string
	City         string
	Country      string
	Profession   string
	SegmentHint  string
	AnnualIncome float64
}

// Age returns the customer's age in years at the given instant.
// A zero birth date yields 0, matching the feature-fill policy.
func (c *Customer) Age(now time.Time) float64 {
	if c.BirthDate.IsZero() {
		return 0
	}
	return now.Sub(c.BirthDate).Hours() / 24 / 365.25
}

// DisplayName returns a human-readable name, falling back to the ID.
func (c *Customer) DisplayName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return c.CustomerID
	}
	return name
}
