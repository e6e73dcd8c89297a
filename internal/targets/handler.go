package targets

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type targetsRepo interface {
	Add(ctx context.Context, target AnatomicalTarget) (*AnatomicalTarget, error)
	List(ctx context.Context, vaultID string, kind Kind) ([]AnatomicalTarget, error)
}

type Handler struct {
	repo targetsRepo
}

func NewHandler(repo targetsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/targets", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-target")
	r.HandleFunc("/vaults/{vaultId}/targets", handler.HandleList).Methods("GET", "OPTIONS").Name("list-targets")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.targets.list")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]
	kind := Kind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		http.Error(w, "error, invalid target kind", http.StatusBadRequest)
		return
	}

	all, err := handler.repo.List(ctx, vaultID, kind)
	if err != nil {
		log.Errorf("failed to list anatomical targets [vault %s]: %s", vaultID, err)
		http.Error(w, "failed to list targets", http.StatusInternalServerError)
		return
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		log.Errorf("failed to marshal anatomical targets: %s", err)
		http.Error(w, "failed to marshal targets", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, allJson, http.StatusOK)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.targets.add")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	var target AnatomicalTarget
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		log.Tracef("new target, unmarshal json params: %s", err)
		http.Error(w, "add target failed", http.StatusBadRequest)
		return
	}

	if target.Name == "" || target.Slug == "" {
		http.Error(w, "error, target name or slug empty", http.StatusBadRequest)
		return
	}
	if !target.Kind.Valid() {
		http.Error(w, "error, invalid target kind", http.StatusBadRequest)
		return
	}

	target.VaultID = vaultID
	added, err := handler.repo.Add(ctx, target)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			http.Error(w, "error, target slug already taken", http.StatusConflict)
			return
		}
		log.Errorf("failed to add anatomical target [%s]: %s", target.Slug, err)
		http.Error(w, "error, failed to add target", http.StatusInternalServerError)
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal added target: %s", err)
		http.Error(w, "error, failed to add target", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}
