package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/rudzz/marketplace/internal/domain/entities"
	tsclient "github.com/rudzz/marketplace/internal/infrastructure/clients/typesense"
	"github.com/rudzz/marketplace/pkg/geo"
)

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter entities.ProviderFilter
		want   string
	}{
		{name: "empty", filter: entities.ProviderFilter{}, want: ""},
		{
			name:   "radius only",
			filter: entities.ProviderFilter{Center: &geo.Point{Lat: 6.5, Lng: 3.4}, RadiusKm: 10},
			want:   "location:(6.500000, 3.400000, 10.000000 km)",
		},
		{
			name:   "services normalized",
			filter: entities.ProviderFilter{Services: []string{" Plumbing", "", "TILING"}},
			want:   "services:=[`plumbing`,`tiling`]",
		},
		{
			name: "both",
			filter: entities.ProviderFilter{
				Center:   &geo.Point{Lat: 0, Lng: 0},
				RadiusKm: 2.5,
				Services: []string{"paint`ing"},
			},
			want: "location:(0.000000, 0.000000, 2.500000 km) && services:=[`painting`]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestListingDocument(t *testing.T) {
	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	doc := listingDocument(&entities.Provider{
		ID:           42,
		BusinessName: "Ace Plumbing",
		Latitude:     6.45,
		Longitude:    3.39,
		Services:     []string{"Plumbing", " Drain Cleaning "},
		Rating:       4.5,
		ReviewCount:  2,
		CreatedAt:    created,
	})

	assert.Equal(t, "42", doc["id"])
	assert.Equal(t, []string{"plumbing", "drain cleaning"}, doc["services"])
	assert.Equal(t, []float64{6.45, 3.39}, doc["location"])
	assert.Equal(t, created.Unix(), doc["created_at"])
}

func TestParseDocumentID(t *testing.T) {
	id, ok := parseDocumentID("17")
	assert.True(t, ok)
	assert.Equal(t, int64(17), id)

	_, ok = parseDocumentID(17.0)
	assert.False(t, ok)
	_, ok = parseDocumentID("abc")
	assert.False(t, ok)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&typesense.HTTPError{Status: 404}))
	assert.False(t, isNotFound(&typesense.HTTPError{Status: 500}))
	assert.False(t, isNotFound(errors.New("boom")))
	assert.False(t, isNotFound(nil))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newBreaker("test")
	boom := errors.New("boom")

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

// searchServer answers listing searches with hitsPerPage documents on every
// page and counts the requests it serves.
func searchServer(t *testing.T, hitsPerPage int) (*TypesenseAdapter, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/listings/documents/search" {
			http.NotFound(w, r)
			return
		}
		page := calls.Add(1)
		hits := make([]map[string]interface{}, 0, hitsPerPage)
		for i := 0; i < hitsPerPage; i++ {
			id := int(page-1)*hitsPerPage + i + 1
			hits = append(hits, map[string]interface{}{
				"document": map[string]interface{}{"id": strconv.Itoa(id)},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"found": hitsPerPage,
			"page":  page,
			"hits":  hits,
		})
	}))
	t.Cleanup(srv.Close)

	client := typesense.NewClient(typesense.WithServer(srv.URL), typesense.WithAPIKey("test"))
	return NewTypesenseAdapter(tsclient.NewClientFromTypesense(client)), &calls
}

func TestSearch_CollectsCandidateIDs(t *testing.T) {
	adapter, calls := searchServer(t, 3)

	ids, err := adapter.Search(context.Background(), entities.ProviderFilter{Services: []string{"plumbing"}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSearch_CandidateLimitFallsBack(t *testing.T) {
	adapter, calls := searchServer(t, pageSize)
	adapter.maxPages = 2

	ids, err := adapter.Search(context.Background(), entities.ProviderFilter{})
	assert.ErrorIs(t, err, ErrCandidateLimit)
	assert.Nil(t, ids)
	assert.Equal(t, int32(2), calls.Load())
}
