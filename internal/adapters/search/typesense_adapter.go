package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/internal/domain/providers"
	tsclient "github.com/rudzz/marketplace/internal/infrastructure/clients/typesense"
)

const (
	pageSize        = 250
	defaultMaxPages = 40
)

// ErrCandidateLimit is returned when a search matches more listings than the
// adapter pages through. Callers fall back to the database, which has no cap.
var ErrCandidateLimit = errors.New("listing index candidate limit reached")

// TypesenseAdapter implements the listing index using Typesense. Calls go
// through a circuit breaker so an unhealthy index fails fast and callers
// fall back to the database.
type TypesenseAdapter struct {
	client   *tsclient.Client
	breaker  *gobreaker.CircuitBreaker
	maxPages int
}

var _ providers.ListingIndex = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{
		client:   client,
		breaker:  newBreaker("typesense-listings"),
		maxPages: defaultMaxPages,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Upsert indexes or re-indexes a listing
func (a *TypesenseAdapter) Upsert(ctx context.Context, provider *entities.Provider) error {
	document := listingDocument(provider)
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return a.client.Client().Collection(tsclient.ListingsCollection).Documents().Upsert(ctx, document)
	})
	if err != nil {
		return fmt.Errorf("failed to index listing %d: %w", provider.ID, err)
	}
	return nil
}

// Remove drops a listing from the index. A listing that was never indexed is not an error.
func (a *TypesenseAdapter) Remove(ctx context.Context, providerID int64) error {
	_, err := a.breaker.Execute(func() (interface{}, error) {
		_, err := a.client.Client().Collection(tsclient.ListingsCollection).Document(documentID(providerID)).Delete(ctx)
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to remove listing %d from index: %w", providerID, err)
	}
	return nil
}

// Search returns the IDs of listings within the filter's circle that offer
// any of its services. The result is a candidate set; callers apply the
// exact filter against the store.
func (a *TypesenseAdapter) Search(ctx context.Context, filter entities.ProviderFilter) ([]int64, error) {
	filterBy := buildFilter(filter)

	var ids []int64
	for page := 1; ; page++ {
		if page > a.maxPages {
			log.Ctx(ctx).Warn().Int("candidates", len(ids)).Int("pages", a.maxPages).Msg("listing index search hit the candidate limit")
			return nil, fmt.Errorf("%w after %d listings", ErrCandidateLimit, len(ids))
		}
		params := &api.SearchCollectionParams{
			Q:       pointer.String("*"),
			QueryBy: pointer.String("business_name"),
			Page:    pointer.Int(page),
			PerPage: pointer.Int(pageSize),
		}
		if filterBy != "" {
			params.FilterBy = pointer.String(filterBy)
		}

		res, err := a.breaker.Execute(func() (interface{}, error) {
			return a.client.Client().Collection(tsclient.ListingsCollection).Documents().Search(ctx, params)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to search listings: %w", err)
		}

		result, ok := res.(*api.SearchResult)
		if !ok || result == nil || result.Hits == nil {
			break
		}
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			if id, ok := parseDocumentID((*hit.Document)["id"]); ok {
				ids = append(ids, id)
			}
		}
		if len(*result.Hits) < pageSize {
			break
		}
	}
	return ids, nil
}

func listingDocument(p *entities.Provider) map[string]interface{} {
	services := make([]string, 0, len(p.Services))
	for _, s := range p.Services {
		services = append(services, entities.NormalizeService(s))
	}
	return map[string]interface{}{
		"id":            documentID(p.ID),
		"business_name": p.BusinessName,
		"services":      services,
		"location":      []float64{p.Latitude, p.Longitude},
		"rating":        p.Rating,
		"review_count":  p.ReviewCount,
		"created_at":    p.CreatedAt.Unix(),
	}
}

// buildFilter renders a Typesense filter_by expression. Services are indexed
// in normalized form so matching is case-insensitive.
func buildFilter(filter entities.ProviderFilter) string {
	var clauses []string
	if filter.Center != nil {
		clauses = append(clauses, fmt.Sprintf("location:(%f, %f, %f km)",
			filter.Center.Lat, filter.Center.Lng, filter.RadiusKm))
	}

	services := make([]string, 0, len(filter.Services))
	for _, s := range filter.Services {
		if n := entities.NormalizeService(s); n != "" {
			services = append(services, "`"+strings.ReplaceAll(n, "`", "")+"`")
		}
	}
	if len(services) > 0 {
		clauses = append(clauses, "services:=["+strings.Join(services, ",")+"]")
	}
	return strings.Join(clauses, " && ")
}

func documentID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseDocumentID(v interface{}) (int64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

func isNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == 404
}
