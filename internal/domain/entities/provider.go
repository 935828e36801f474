package entities

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/rudzz/marketplace/pkg/errors"
	"github.com/rudzz/marketplace/pkg/geo"
)

// Provider is a business listing owned by a user with the provider role.
// Rating and ReviewCount are derived from the listing's reviews and are
// only changed through the Apply* methods.
type Provider struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	BusinessName string    `json:"business_name" db:"business_name"`
	Description  string    `json:"description" db:"description"`
	Address      string    `json:"address" db:"address"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	Services     []string  `json:"services" db:"services"`
	Rating       float64   `json:"rating" db:"rating"`
	ReviewCount  int       `json:"review_count" db:"review_count"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the listing's coordinates
func (p *Provider) Location() geo.Point {
	return geo.Point{Lat: p.Latitude, Lng: p.Longitude}
}

// ValidateLocation rejects coordinates outside the WGS84 ranges
func (p *Provider) ValidateLocation() error {
	if !geo.ValidLatitude(p.Latitude) {
		return apperrors.NewValidationError("latitude must be between -90 and 90")
	}
	if !geo.ValidLongitude(p.Longitude) {
		return apperrors.NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

// OfferedAny reports whether the listing offers at least one of the given
// services. Comparison ignores case and surrounding whitespace.
func (p *Provider) OfferedAny(services []string) bool {
	if len(services) == 0 {
		return true
	}
	offered := make(map[string]struct{}, len(p.Services))
	for _, s := range p.Services {
		offered[NormalizeService(s)] = struct{}{}
	}
	for _, s := range services {
		if _, ok := offered[NormalizeService(s)]; ok {
			return true
		}
	}
	return false
}

// ApplyReviewCreated folds a new review value into the running mean
func (p *Provider) ApplyReviewCreated(value int) {
	total := p.Rating*float64(p.ReviewCount) + float64(value)
	p.ReviewCount++
	p.Rating = total / float64(p.ReviewCount)
}

// ApplyReviewUpdated replaces one review value in the running mean
func (p *Provider) ApplyReviewUpdated(oldValue, newValue int) error {
	if p.ReviewCount <= 0 {
		return apperrors.NewConsistencyError(
			fmt.Sprintf("provider %d has no reviews to update", p.ID), nil)
	}
	total := p.Rating*float64(p.ReviewCount) - float64(oldValue) + float64(newValue)
	p.Rating = total / float64(p.ReviewCount)
	return nil
}

// ApplyReviewDeleted removes one review value from the running mean
func (p *Provider) ApplyReviewDeleted(value int) error {
	if p.ReviewCount <= 0 {
		return apperrors.NewConsistencyError(
			fmt.Sprintf("provider %d has no reviews to delete", p.ID), nil)
	}
	remaining := p.ReviewCount - 1
	if remaining == 0 {
		p.Rating = 0
	} else {
		p.Rating = (p.Rating*float64(p.ReviewCount) - float64(value)) / float64(remaining)
	}
	p.ReviewCount = remaining
	return nil
}

// ProviderFilter narrows a listing search. A nil Center disables the
// distance filter.
type ProviderFilter struct {
	Center   *geo.Point
	RadiusKm float64
	Services []string
}

// ProviderSearchResult is a listing annotated with its distance from the search center
type ProviderSearchResult struct {
	Provider   *Provider
	DistanceKm *float64
}

// NormalizeService canonicalises a service label for comparison
func NormalizeService(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

// CleanServices trims the labels, drops blanks and duplicates, and keeps the original order
func CleanServices(services []string) []string {
	seen := make(map[string]struct{}, len(services))
	out := make([]string, 0, len(services))
	for _, s := range services {
		trimmed := strings.TrimSpace(s)
		key := NormalizeService(trimmed)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
