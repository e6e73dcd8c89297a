package prs

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type prsListRepo interface {
	List(ctx context.Context, vaultID string) ([]ExercisePR, error)
	ListEvents(ctx context.Context, vaultID string) ([]Event, error)
}

type Handler struct {
	repo prsListRepo
}

func NewHandler(repo prsListRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/prs", handler.HandleList).Methods("GET", "OPTIONS").Name("list-prs")
	r.HandleFunc("/vaults/{vaultId}/prs/events", handler.HandleListEvents).Methods("GET", "OPTIONS").Name("list-pr-events")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prs.list")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	all, err := handler.repo.List(ctx, vaultID)
	if err != nil {
		log.Errorf("failed to list PRs [vault %s]: %s", vaultID, err)
		http.Error(w, "failed to list personal records", http.StatusInternalServerError)
		return
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		http.Error(w, "failed to marshal personal records", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, allJson, http.StatusOK)
}

func (handler *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.prs.listevents")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	all, err := handler.repo.ListEvents(ctx, vaultID)
	if err != nil {
		log.Errorf("failed to list PR events [vault %s]: %s", vaultID, err)
		http.Error(w, "failed to list personal record events", http.StatusInternalServerError)
		return
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		http.Error(w, "failed to marshal personal record events", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, allJson, http.StatusOK)
}
