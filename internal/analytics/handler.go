package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/revalidate"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/metrics"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type analyticsRepo interface {
	ListMuscleRows(ctx context.Context, vaultID, fromWeek, toWeek string) ([]MuscleRow, error)
	ListTendonRows(ctx context.Context, vaultID, fromWeek, toWeek string) ([]TendonRow, error)
}

type versionSource interface {
	Version(ctx context.Context, vaultID string) (int64, error)
}

type Handler struct {
	repo      analyticsRepo
	versions  versionSource
	viewCache *revalidate.ViewCache
	metrics   *metrics.Manager
}

func NewHandler(repo analyticsRepo, versions versionSource, viewCache *revalidate.ViewCache, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:      repo,
		versions:  versions,
		viewCache: viewCache,
		metrics:   metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/analytics/volume", handler.HandleVolume).Methods("GET", "OPTIONS").Name("analytics-volume")
}

// HandleVolume serves the per-target volume report. Rendered payloads are
// cached per (vault, version, query), a vault mutation bumps the version
// and the next read recomputes.
func (handler *Handler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.volume")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]
	query := r.URL.Query()

	kind := targets.Kind(query.Get("kind"))
	if kind == "" {
		kind = targets.KindMuscleGroup
	}
	if !kind.Valid() {
		http.Error(w, "error, invalid target kind", http.StatusBadRequest)
		return
	}

	sortKey := query.Get("sort")
	filter := query.Get("filter")
	fromWeek := query.Get("from")
	toWeek := query.Get("to")

	var selected *int64
	if selectedStr := query.Get("selected"); selectedStr != "" {
		id, err := strconv.ParseInt(selectedStr, 10, 64)
		if err != nil {
			http.Error(w, "error, selected target id NaN", http.StatusBadRequest)
			return
		}
		selected = &id
	}

	view := fmt.Sprintf("volume::%s::%s::%s::%s::%s::%s",
		kind, sortKey, filter, fromWeek, toWeek, query.Get("selected"))

	version, err := handler.versions.Version(ctx, vaultID)
	cacheUsable := err == nil
	if err != nil {
		// redis being down degrades to uncached reads
		log.Errorf("failed to get view version [vault %s]: %s", vaultID, err)
	}

	if cacheUsable {
		if payload, ok := handler.viewCache.Get(vaultID, version, view); ok {
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payload, http.StatusOK)
			return
		}
	}

	var report VolumeReport
	switch kind {
	case targets.KindMuscleGroup:
		rows, err := handler.repo.ListMuscleRows(ctx, vaultID, fromWeek, toWeek)
		if err != nil {
			log.Errorf("failed to list muscle metric rows [vault %s]: %s", vaultID, err)
			http.Error(w, "failed to compute volume analytics", http.StatusInternalServerError)
			return
		}
		report = MuscleVolumeReport(rows, filter, sortKey, selected)
	case targets.KindTendon:
		rows, err := handler.repo.ListTendonRows(ctx, vaultID, fromWeek, toWeek)
		if err != nil {
			log.Errorf("failed to list tendon metric rows [vault %s]: %s", vaultID, err)
			http.Error(w, "failed to compute volume analytics", http.StatusInternalServerError)
			return
		}
		report = TendonVolumeReport(rows, filter, sortKey, selected)
	}

	payload, err := json.Marshal(report)
	if err != nil {
		log.Errorf("failed to marshal volume report: %s", err)
		http.Error(w, "failed to compute volume analytics", http.StatusInternalServerError)
		return
	}

	if cacheUsable {
		handler.viewCache.Set(vaultID, version, view, payload)
		handler.metrics.CounterViewRevalidations.Inc()
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, payload, http.StatusOK)
}
