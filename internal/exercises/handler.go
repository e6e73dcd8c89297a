package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/revalidate"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, vaultID string, id int64) (*Exercise, error)
	List(ctx context.Context, vaultID string) ([]Exercise, error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, vaultID string, id int64) error
	ListTargetLinks(ctx context.Context, vaultID string, exerciseID int64) ([]TargetLink, error)
	UpsertTargetLink(ctx context.Context, link TargetLink) error
	DeleteTargetLinks(ctx context.Context, exerciseID int64, targetIDs []int64) error
}

type DeleteExerciseResponse struct {
	DeletedID int64 `json:"deletedId"`
}

type UpdateExerciseResponse struct {
	UpdatedID int64 `json:"updatedId"`
}

type ReplaceTargetsRequest struct {
	Targets []TargetLink `json:"targets"`
}

type ReplaceTargetsResponse struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}

type Handler struct {
	repo   exercisesRepo
	marker *revalidate.Marker
}

func NewHandler(repo exercisesRepo, marker *revalidate.Marker) *Handler {
	return &Handler{
		repo:   repo,
		marker: marker,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/exercises", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	r.HandleFunc("/vaults/{vaultId}/exercises", handler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	r.HandleFunc("/vaults/{vaultId}/exercises/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	r.HandleFunc("/vaults/{vaultId}/exercises/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	r.HandleFunc("/vaults/{vaultId}/exercises/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
	r.HandleFunc("/vaults/{vaultId}/exercises/{id}/targets", handler.HandleGetTargets).Methods("GET", "OPTIONS").Name("get-exercise-targets")
	r.HandleFunc("/vaults/{vaultId}/exercises/{id}/targets", handler.HandleReplaceTargets).Methods("PUT", "OPTIONS").Name("replace-exercise-targets")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		log.Tracef("new exercise, unmarshal json params: %s", err)
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}

	if exercise.Name == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}
	if !exercise.Modality.Valid() {
		http.Error(w, "error, invalid exercise modality", http.StatusBadRequest)
		return
	}

	exercise.VaultID = vaultID
	if exercise.CreatedAt.IsZero() {
		exercise.CreatedAt = time.Now()
	}

	added, err := handler.repo.Add(ctx, exercise)
	if err != nil {
		log.Errorf("failed to add new exercise [%s]: %s", exercise.Name, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	all, err := handler.repo.List(ctx, vaultID)
	if err != nil {
		log.Errorf("failed to list exercises [vault %s]: %s", vaultID, err)
		http.Error(w, "failed to list exercises", http.StatusInternalServerError)
		return
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		log.Errorf("failed to marshal exercises: %s", err)
		http.Error(w, "failed to marshal exercises", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, allJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	e, err := handler.repo.Get(ctx, vaultID, id)
	if err != nil {
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	}

	exJson, err := json.Marshal(e)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "failed to marshal exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var exercise Exercise
	if err := json.NewDecoder(r.Body).Decode(&exercise); err != nil {
		http.Error(w, "update exercise failed", http.StatusBadRequest)
		return
	}

	if exercise.Name == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return
	}
	if !exercise.Modality.Valid() {
		http.Error(w, "error, invalid exercise modality", http.StatusBadRequest)
		return
	}

	exercise.ID = id
	exercise.VaultID = vaultID
	if err := handler.repo.Update(ctx, &exercise); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update exercise %d: %s", id, err)
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(UpdateExerciseResponse{UpdatedID: id})
	if err != nil {
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, vaultID, id); err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "error, exercise is still referenced", http.StatusConflict)
			return
		}
		log.Errorf("failed to delete exercise %d: %s", id, err)
		http.Error(w, "error, failed to delete exercise", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(DeleteExerciseResponse{DeletedID: id})
	if err != nil {
		http.Error(w, "error, failed to delete exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) HandleGetTargets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.gettargets")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	links, err := handler.repo.ListTargetLinks(ctx, vaultID, id)
	if err != nil {
		log.Errorf("failed to list target links for exercise %d: %s", id, err)
		http.Error(w, "failed to list exercise targets", http.StatusInternalServerError)
		return
	}

	linksJson, err := json.Marshal(links)
	if err != nil {
		http.Error(w, "failed to marshal exercise targets", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, linksJson, http.StatusOK)
}

// HandleReplaceTargets saves an exercise's desired target assignment with
// replace-all-by-diff semantics: upsert every desired link, then delete the
// current links no longer wanted. The batches are not atomic.
func (handler *Handler) HandleReplaceTargets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.replacetargets")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ReplaceTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "replace targets failed", http.StatusBadRequest)
		return
	}

	for i := range req.Targets {
		req.Targets[i].ExerciseID = id
		if err := req.Targets[i].Validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	// ownership check before any write
	if _, err := handler.repo.Get(ctx, vaultID, id); err != nil {
		http.Error(w, "exercise not found", http.StatusNotFound)
		return
	}

	current, err := handler.repo.ListTargetLinks(ctx, vaultID, id)
	if err != nil {
		log.Errorf("failed to list current target links for exercise %d: %s", id, err)
		http.Error(w, "error, failed to replace targets", http.StatusInternalServerError)
		return
	}

	diff := DiffTargetLinks(current, req.Targets)
	for _, link := range diff.Upserts {
		if err := handler.repo.UpsertTargetLink(ctx, link); err != nil {
			log.Errorf("failed to upsert target link [ex %d, target %d]: %s", id, link.TargetID, err)
			http.Error(w, "error, failed to replace targets", http.StatusInternalServerError)
			return
		}
	}
	if err := handler.repo.DeleteTargetLinks(ctx, id, diff.Deletes); err != nil {
		log.Errorf("failed to delete extra target links [ex %d]: %s", id, err)
		http.Error(w, "error, failed to replace targets", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(ReplaceTargetsResponse{
		Upserted: len(diff.Upserts),
		Deleted:  len(diff.Deletes),
	})
	if err != nil {
		http.Error(w, "error, failed to replace targets", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func vaultAndID(r *http.Request) (string, int64, error) {
	vars := mux.Vars(r)
	vaultID := vars["vaultId"]
	idStr := vars["id"]
	if idStr == "" {
		return "", 0, errors.New("error, id empty")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return "", 0, errors.New("error, id NaN")
	}
	return vaultID, id, nil
}
