package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rudzz/marketplace/internal/application/services"
	"github.com/rudzz/marketplace/internal/domain/entities"
	"github.com/rudzz/marketplace/pkg/geo"
)

// ProviderHandler handles provider listings and directory search
type ProviderHandler struct {
	service *services.DirectoryService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(service *services.DirectoryService) *ProviderHandler {
	return &ProviderHandler{service: service}
}

type createProviderRequest struct {
	BusinessName string   `json:"business_name" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	Address      string   `json:"address" validate:"max=500"`
	Latitude     *float64 `json:"latitude" validate:"required,latitude"`
	Longitude    *float64 `json:"longitude" validate:"required,longitude"`
	Services     []string `json:"services" validate:"max=50,dive,max=100"`
}

type updateProviderRequest struct {
	BusinessName *string   `json:"business_name" validate:"omitempty,min=1,max=200"`
	Description  *string   `json:"description" validate:"omitempty,max=5000"`
	Address      *string   `json:"address" validate:"omitempty,max=500"`
	Latitude     *float64  `json:"latitude" validate:"omitempty,latitude"`
	Longitude    *float64  `json:"longitude" validate:"omitempty,longitude"`
	Services     *[]string `json:"services" validate:"omitempty,max=50,dive,max=100"`
}

type providerResponse struct {
	*entities.Provider
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// ListProviders handles GET /api/providers. Without lat/lng every listing is
// returned in ID order; with them only listings inside the radius, nearest first.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseProviderFilter(w, r)
	if !ok {
		return
	}

	results, err := h.service.Search(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	providers := make([]providerResponse, 0, len(results))
	for _, res := range results {
		item := providerResponse{Provider: res.Provider}
		if res.DistanceKm != nil {
			rounded := geo.RoundKm(*res.DistanceKm)
			item.DistanceKm = &rounded
		}
		providers = append(providers, item)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
		"count":     len(providers),
	})
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	provider, err := h.service.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, provider)
}

// CreateProvider handles POST /api/providers
func (h *ProviderHandler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	provider, err := h.service.Create(r.Context(), actor, services.ListingInput{
		BusinessName: &req.BusinessName,
		Description:  &req.Description,
		Address:      &req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Services:     req.Services,
		ServicesSet:  true,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, provider)
}

// UpdateProvider handles PUT /api/providers/{id}
func (h *ProviderHandler) UpdateProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateProviderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := services.ListingInput{
		BusinessName: req.BusinessName,
		Description:  req.Description,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
	}
	if req.Services != nil {
		in.Services = *req.Services
		in.ServicesSet = true
	}

	provider, err := h.service.Update(r.Context(), actor, id, in)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, provider)
}

// DeleteProvider handles DELETE /api/providers/{id}
func (h *ProviderHandler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseProviderFilter(w http.ResponseWriter, r *http.Request) (entities.ProviderFilter, bool) {
	q := r.URL.Query()
	var filter entities.ProviderFilter

	if raw := q.Get("services"); raw != "" {
		filter.Services = strings.Split(raw, ",")
	}

	latRaw, lngRaw := q.Get("lat"), q.Get("lng")
	if latRaw == "" && lngRaw == "" {
		return filter, true
	}
	if latRaw == "" || lngRaw == "" {
		respondWithError(w, http.StatusBadRequest, "lat and lng must be given together")
		return filter, false
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid latitude parameter")
		return filter, false
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid longitude parameter")
		return filter, false
	}
	filter.Center = &geo.Point{Lat: lat, Lng: lng}

	if raw := q.Get("radius"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid radius parameter")
			return filter, false
		}
		filter.RadiusKm = radius
	}
	return filter, true
}
