package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	querycache "github.com/Borislavv/go-ash-query"
	"github.com/Borislavv/go-ash-query/model"
	"github.com/Borislavv/go-ash-query/store"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const vehicleSearchPrefix = "vehicle_search"

type vehicleHandler struct {
	cache     *querycache.QueryCache[[]model.Record]
	store     *store.Store
	inventory *inventory
	logger    *slog.Logger
}

func newRouter(h *vehicleHandler, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/vehicles", h.listVehicles).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", h.createVehicle).Methods(http.MethodPost)
	r.HandleFunc("/vehicles/{id}", h.updateVehicle).Methods(http.MethodPatch)
	r.HandleFunc("/vehicles/{id}", h.deleteVehicle).Methods(http.MethodDelete)
	r.HandleFunc("/cache/stats", h.cacheStats).Methods(http.MethodGet)
	r.HandleFunc("/cache", h.invalidateCache).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

type vehiclesResponse struct {
	Vehicles     []model.Record `json:"vehicles"`
	StatusCounts map[string]int `json:"status_counts"`
	FromCache    bool           `json:"from_cache"`
}

// GET /vehicles?status=active&make=volvo
func (h *vehicleHandler) listVehicles(w http.ResponseWriter, r *http.Request) {
	filter := map[string]string{}
	for _, field := range []string{"status", "make"} {
		if v := r.URL.Query().Get(field); v != "" {
			filter[field] = v
		}
	}

	key, err := querycache.Key(vehicleSearchPrefix, filter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.cache.ExecuteWithCache(r.Context(), key, 0, func(ctx context.Context) ([]model.Record, error) {
		return h.inventory.List(ctx, filter)
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	h.store.Load(res.Value)
	writeJSON(w, http.StatusOK, vehiclesResponse{
		Vehicles:     h.store.All(),
		StatusCounts: h.store.CountBy("status"),
		FromCache:    res.FromCache,
	})
}

// POST /vehicles shows the vehicle immediately and rolls back if the backend refuses it.
func (h *vehicleHandler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	optimistic := model.NewRecord(fields)
	h.store.Add(optimistic)

	created, err := h.inventory.Create(r.Context(), optimistic)
	if err != nil {
		h.store.Remove(optimistic.ID())
		h.logger.Error("create vehicle failed, rolled back", "id", optimistic.ID(), "err", err)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	h.invalidateSearches("create", created.ID())
	writeJSON(w, http.StatusCreated, created)
}

// PATCH /vehicles/{id}
func (h *vehicleHandler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch model.Record
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	delete(patch, model.IDField)

	prev, known := h.store.FindByID(id)
	if known {
		h.store.Update(id, patch)
	}

	updated, err := h.inventory.Update(r.Context(), id, patch)
	if err != nil {
		if known {
			h.store.Replace(id, prev)
		}
		h.respondBackendError(w, "update", id, err)
		return
	}
	h.invalidateSearches("update", id)
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /vehicles/{id}
func (h *vehicleHandler) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	prev, known := h.store.FindByID(id)
	if known {
		h.store.Remove(id)
	}

	if err := h.inventory.Delete(r.Context(), id); err != nil {
		if known {
			h.store.Add(prev)
		}
		h.respondBackendError(w, "delete", id, err)
		return
	}
	h.invalidateSearches("delete", id)
	w.WriteHeader(http.StatusNoContent)
}

// GET /cache/stats
func (h *vehicleHandler) cacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.cache.Stats())
}

// DELETE /cache?pattern=vehicle_search drops matching keys, DELETE /cache?key=... drops
// exactly one key, DELETE /cache drops everything.
func (h *vehicleHandler) invalidateCache(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		writeJSON(w, http.StatusOK, map[string]any{"removed": h.cache.Del(key)})
		return
	}
	if !r.URL.Query().Has("pattern") {
		h.cache.Clear()
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
		return
	}

	removed, err := h.cache.Invalidate(r.URL.Query().Get("pattern"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// invalidateSearches drops listings a fetch may have cached while the backend call was in flight.
func (h *vehicleHandler) invalidateSearches(op, id string) {
	if _, err := h.cache.Invalidate(vehicleSearchPrefix); err != nil {
		h.logger.Warn("invalidate after confirmed mutation failed", "op", op, "id", id, "err", err)
	}
}

func (h *vehicleHandler) respondBackendError(w http.ResponseWriter, op, id string, err error) {
	if errors.Is(err, errVehicleNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	h.logger.Error(op+" vehicle failed, rolled back", "id", id, "err", err)
	writeError(w, http.StatusBadGateway, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
