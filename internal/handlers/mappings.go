package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/watibridge/internal/locations"
	"github.com/xelth-com/watibridge/internal/models"
)

// mappingRequest is the editable part of a location mapping
type mappingRequest struct {
	LocationCode *string `json:"locationCode"`
	Warehouse    *string `json:"warehouse"`
	Description  *string `json:"description"`
	Active       *bool   `json:"active"`
}

func (m mappingRequest) apply(dst *models.LocationMapping) {
	if m.LocationCode != nil {
		dst.LocationCode = models.NormalizeLocationCode(*m.LocationCode)
	}
	if m.Warehouse != nil {
		dst.Warehouse = strings.TrimSpace(*m.Warehouse)
	}
	if m.Description != nil {
		dst.Description = *m.Description
	}
	if m.Active != nil {
		dst.Active = *m.Active
	}
}

func (r *Router) listMappings(w http.ResponseWriter, req *http.Request) {
	list, err := r.mappings.List(req.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch location mappings")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (r *Router) getMapping(w http.ResponseWriter, req *http.Request) {
	m, ok := r.loadMapping(w, req)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (r *Router) createMapping(w http.ResponseWriter, req *http.Request) {
	var body mappingRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	m := models.LocationMapping{Active: true}
	body.apply(&m)
	if m.LocationCode == "" || m.Warehouse == "" {
		respondError(w, http.StatusBadRequest, "locationCode and warehouse are required")
		return
	}
	if err := r.mappings.Save(req.Context(), &m); err != nil {
		r.respondSaveError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, m)
}

func (r *Router) updateMapping(w http.ResponseWriter, req *http.Request) {
	m, ok := r.loadMapping(w, req)
	if !ok {
		return
	}
	var body mappingRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	body.apply(m)
	if m.LocationCode == "" || m.Warehouse == "" {
		respondError(w, http.StatusBadRequest, "locationCode and warehouse are required")
		return
	}
	if err := r.mappings.Save(req.Context(), m); err != nil {
		r.respondSaveError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

func (r *Router) deleteMapping(w http.ResponseWriter, req *http.Request) {
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	err := r.mappings.Delete(req.Context(), uint(id))
	if errors.Is(err, locations.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Location mapping not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete location mapping")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Location mapping deleted",
		"id":      id,
	})
}

// resolveMapping answers what the pipeline would do with a code
func (r *Router) resolveMapping(w http.ResponseWriter, req *http.Request) {
	code := models.NormalizeLocationCode(mux.Vars(req)["code"])
	wh, err := r.mapper.Resolve(req.Context(), code)
	if errors.Is(err, locations.ErrMappingNotFound) {
		respondError(w, http.StatusNotFound, "Location '"+code+"' not found in Location Mapping")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to resolve location")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"locationCode": code,
		"warehouse":    wh,
	})
}

func (r *Router) loadMapping(w http.ResponseWriter, req *http.Request) (*models.LocationMapping, bool) {
	id, _ := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	m, err := r.mappings.Get(req.Context(), uint(id))
	if errors.Is(err, locations.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Location mapping not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch location mapping")
		return nil, false
	}
	return m, true
}

func (r *Router) respondSaveError(w http.ResponseWriter, err error) {
	if errors.Is(err, locations.ErrDuplicateCode) {
		respondError(w, http.StatusConflict, "Location code already mapped")
		return
	}
	respondError(w, http.StatusInternalServerError, "Failed to save location mapping")
}
