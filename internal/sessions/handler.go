package sessions

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
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/templates"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/metrics"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type sessionsService interface {
	Instantiate(ctx context.Context, vaultID string, params InstantiateParams) (*Session, error)
	Get(ctx context.Context, vaultID string, sessionID int64) (*Session, error)
	SaveSet(ctx context.Context, vaultID string, sessionID, setID int64, patch SetPatch) (*SaveSetResult, error)
	AddExercise(ctx context.Context, vaultID string, sessionID, exerciseID int64, numSets int) (*Entry, error)
	RemoveExercise(ctx context.Context, vaultID string, sessionID, entryID int64) error
	AddSet(ctx context.Context, vaultID string, sessionID, entryID int64) (*Set, error)
	DeleteSet(ctx context.Context, vaultID string, sessionID, setID int64) error
	MoveEntry(ctx context.Context, vaultID string, sessionID, entryID int64, direction MoveDirection) error
	SetBodyWeight(ctx context.Context, vaultID string, sessionID int64, bodyWeightKg *float64) error
	SetStartTime(ctx context.Context, vaultID string, sessionID int64, hhmm string) error
	SetFinishTime(ctx context.Context, vaultID string, sessionID int64, hhmm string) error
	Discard(ctx context.Context, vaultID string, sessionID int64) error
}

type InstantiateRequest struct {
	TemplateID        int64    `json:"templateId"`
	SessionDate       string   `json:"sessionDate"` // "2006-01-02"
	StartedAt         string   `json:"startedAt,omitempty"`
	BodyWeightKg      *float64 `json:"bodyWeightKg,omitempty"`
	Notes             string   `json:"notes,omitempty"`
	DefaultTargetSets int      `json:"defaultTargetSets,omitempty"`
}

type AddExerciseRequest struct {
	ExerciseID int64 `json:"exerciseId"`
	NumSets    int   `json:"numSets,omitempty"`
}

type MoveEntryRequest struct {
	Direction MoveDirection `json:"direction"`
}

type BodyWeightRequest struct {
	BodyWeightKg *float64 `json:"bodyWeightKg"`
}

// TimeRequest carries local wall-clock times, nil leaves a field untouched
// and an empty string clears it.
type TimeRequest struct {
	Start  *string `json:"start,omitempty"`
	Finish *string `json:"finish,omitempty"`
}

type DeletedResponse struct {
	DeletedID int64 `json:"deletedId"`
}

type Handler struct {
	service sessionsService
	marker  *revalidate.Marker
	metrics *metrics.Manager
}

func NewHandler(service sessionsService, marker *revalidate.Marker, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		marker:  marker,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/sessions/instantiate", handler.HandleInstantiate).Methods("POST", "OPTIONS").Name("instantiate-session")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-session")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}", handler.HandleDiscard).Methods("DELETE", "OPTIONS").Name("discard-session")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/entries", handler.HandleAddExercise).Methods("POST", "OPTIONS").Name("session-add-exercise")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/entries/{entryId}", handler.HandleRemoveExercise).Methods("DELETE", "OPTIONS").Name("session-remove-exercise")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/entries/{entryId}/sets", handler.HandleAddSet).Methods("POST", "OPTIONS").Name("session-add-set")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/entries/{entryId}/move", handler.HandleMoveEntry).Methods("POST", "OPTIONS").Name("session-move-entry")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/sets/{setId}", handler.HandleSaveSet).Methods("PUT", "OPTIONS").Name("session-save-set")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/sets/{setId}", handler.HandleDeleteSet).Methods("DELETE", "OPTIONS").Name("session-delete-set")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/bodyweight", handler.HandleSetBodyWeight).Methods("PUT", "OPTIONS").Name("session-set-bodyweight")
	r.HandleFunc("/vaults/{vaultId}/sessions/{id}/time", handler.HandleSetTime).Methods("PUT", "OPTIONS").Name("session-set-time")
}

func (handler *Handler) HandleInstantiate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.instantiate")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	var req InstantiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("instantiate session, unmarshal json params: %s", err)
		http.Error(w, "instantiate session failed", http.StatusBadRequest)
		return
	}

	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		http.Error(w, "error, invalid session date", http.StatusBadRequest)
		return
	}

	session, err := handler.service.Instantiate(ctx, vaultID, InstantiateParams{
		TemplateID:        req.TemplateID,
		SessionDate:       sessionDate,
		StartedAt:         req.StartedAt,
		BodyWeightKg:      req.BodyWeightKg,
		Notes:             req.Notes,
		DefaultTargetSets: req.DefaultTargetSets,
	})
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrBodyWeightOutOfRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to instantiate session from template %d: %s", req.TemplateID, err)
		http.Error(w, "error, failed to instantiate session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsCreated.Inc()
	handler.marker.Bump(ctx, vaultID)

	sessionJson, err := json.Marshal(session)
	if err != nil {
		log.Errorf("failed to marshal new session: %s", err)
		http.Error(w, "error, failed to instantiate session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.get")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	session, err := handler.service.Get(ctx, vaultID, sessionID)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get session %d: %s", sessionID, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	sessionJson, err := json.Marshal(session)
	if err != nil {
		http.Error(w, "failed to marshal session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sessionJson, http.StatusOK)
}

func (handler *Handler) HandleSaveSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.saveset")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	setID, err := pathID(r, "setId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var patch SetPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "save set failed", http.StatusBadRequest)
		return
	}
	if err := patch.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := handler.service.SaveSet(ctx, vaultID, sessionID, setID, patch)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		if isValidationErr(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if pkg.IsCheckViolationError(err) {
			http.Error(w, "error, set values out of range", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to save set %d: %s", setID, err)
		http.Error(w, "error, failed to save set", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSetsSaved.Inc()
	handler.metrics.CounterPrEvents.Add(float64(len(result.PrEvents)))
	handler.marker.Bump(ctx, vaultID)

	resultJson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "error, failed to save set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.addexercise")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "add exercise failed", http.StatusBadRequest)
		return
	}
	if req.ExerciseID == 0 {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	entry, err := handler.service.AddExercise(ctx, vaultID, sessionID, req.ExerciseID, req.NumSets)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "error, unknown exercise", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add exercise %d to session %d: %s", req.ExerciseID, sessionID, err)
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	entryJson, err := json.Marshal(entry)
	if err != nil {
		http.Error(w, "error, failed to add exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.removeexercise")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entryID, err := pathID(r, "entryId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.service.RemoveExercise(ctx, vaultID, sessionID, entryID); err != nil {
		if isNotFound(err) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrEntryHasLoggedSets) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Errorf("failed to remove entry %d from session %d: %s", entryID, sessionID, err)
		http.Error(w, "error, failed to remove exercise", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(DeletedResponse{DeletedID: entryID})
	if err != nil {
		http.Error(w, "error, failed to remove exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.addset")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entryID, err := pathID(r, "entryId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	set, err := handler.service.AddSet(ctx, vaultID, sessionID, entryID)
	if err != nil {
		if isNotFound(err) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to add set to entry %d: %s", entryID, err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	setJson, err := json.Marshal(set)
	if err != nil {
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, setJson, http.StatusCreated)
}

func (handler *Handler) HandleDeleteSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.deleteset")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	setID, err := pathID(r, "setId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.service.DeleteSet(ctx, vaultID, sessionID, setID); err != nil {
		if isNotFound(err) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrSetIsLogged) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		log.Errorf("failed to delete set %d: %s", setID, err)
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(DeletedResponse{DeletedID: setID})
	if err != nil {
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) HandleMoveEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.moveentry")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entryID, err := pathID(r, "entryId")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req MoveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "move entry failed", http.StatusBadRequest)
		return
	}
	if !req.Direction.Valid() {
		http.Error(w, "error, invalid move direction", http.StatusBadRequest)
		return
	}

	if err := handler.service.MoveEntry(ctx, vaultID, sessionID, entryID, req.Direction); err != nil {
		if isNotFound(err) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to move entry %d: %s", entryID, err)
		http.Error(w, "error, failed to move entry", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)
	pkg.WriteTextResponseOK(w, "moved")
}

func (handler *Handler) HandleSetBodyWeight(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.setbodyweight")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req BodyWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "set body weight failed", http.StatusBadRequest)
		return
	}

	if err := handler.service.SetBodyWeight(ctx, vaultID, sessionID, req.BodyWeightKg); err != nil {
		if isNotFound(err) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrBodyWeightOutOfRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to set body weight for session %d: %s", sessionID, err)
		http.Error(w, "error, failed to set body weight", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)
	pkg.WriteTextResponseOK(w, "updated")
}

func (handler *Handler) HandleSetTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.settime")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req TimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "set session time failed", http.StatusBadRequest)
		return
	}
	if req.Start == nil && req.Finish == nil {
		http.Error(w, "error, nothing to set", http.StatusBadRequest)
		return
	}

	// start first: moving it can clear an inconsistent finish before the
	// finish update is applied
	if req.Start != nil {
		if err := handler.service.SetStartTime(ctx, vaultID, sessionID, *req.Start); err != nil {
			handler.writeTimeErr(w, sessionID, err)
			return
		}
	}
	if req.Finish != nil {
		if err := handler.service.SetFinishTime(ctx, vaultID, sessionID, *req.Finish); err != nil {
			handler.writeTimeErr(w, sessionID, err)
			return
		}
	}

	handler.marker.Bump(ctx, vaultID)
	pkg.WriteTextResponseOK(w, "updated")
}

func (handler *Handler) writeTimeErr(w http.ResponseWriter, sessionID int64, err error) {
	if isNotFound(err) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrFinishBeforeStart) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Errorf("failed to set time for session %d: %s", sessionID, err)
	http.Error(w, "error, failed to set session time", http.StatusInternalServerError)
}

func (handler *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sessions.discard")
	defer span.End()

	vaultID, sessionID, err := vaultAndSessionID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.service.Discard(ctx, vaultID, sessionID); err != nil {
		if isNotFound(err) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to discard session %d: %s", sessionID, err)
		http.Error(w, "error, failed to discard session", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterSessionsDiscarded.Inc()
	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(DeletedResponse{DeletedID: sessionID})
	if err != nil {
		http.Error(w, "error, failed to discard session", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrSetNotFound) ||
		errors.Is(err, templates.ErrTemplateNotFound)
}

func isValidationErr(err error) bool {
	return errors.Is(err, ErrRepsAndDuration) ||
		errors.Is(err, ErrDurationOnRepsSet) ||
		errors.Is(err, ErrRepsOnIsometricSet)
}

func vaultAndSessionID(r *http.Request) (string, int64, error) {
	vars := mux.Vars(r)
	vaultID := vars["vaultId"]
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return "", 0, errors.New("error, session id NaN")
	}
	return vaultID, id, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil {
		return 0, errors.New("error, " + name + " NaN")
	}
	return id, nil
}
