package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/revalidate"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/tracing"
	"github.com/Angrypuncake/Gym-Logger-sub000/pkg"
)

type templatesRepo interface {
	Add(ctx context.Context, template Template) (*Template, error)
	Get(ctx context.Context, vaultID string, id int64) (*Template, error)
	List(ctx context.Context, vaultID string) ([]Template, error)
	Update(ctx context.Context, template *Template) error
	Delete(ctx context.Context, vaultID string, id int64) error
}

type DeleteTemplateResponse struct {
	DeletedID int64 `json:"deletedId"`
}

type Handler struct {
	repo   templatesRepo
	marker *revalidate.Marker
}

func NewHandler(repo templatesRepo, marker *revalidate.Marker) *Handler {
	return &Handler{
		repo:   repo,
		marker: marker,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/vaults/{vaultId}/templates", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-template")
	r.HandleFunc("/vaults/{vaultId}/templates", handler.HandleList).Methods("GET", "OPTIONS").Name("list-templates")
	r.HandleFunc("/vaults/{vaultId}/templates/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-template")
	r.HandleFunc("/vaults/{vaultId}/templates/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-template")
	r.HandleFunc("/vaults/{vaultId}/templates/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-template")
}

func validate(t *Template) error {
	if t.Name == "" {
		return errors.New("error, template name empty")
	}
	for _, item := range t.Items {
		if item.ExerciseID == 0 {
			return errors.New("error, template item without exercise")
		}
		if item.TargetSets != nil && *item.TargetSets < 0 {
			return errors.New("error, template item target sets negative")
		}
	}
	return nil
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.add")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	var template Template
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		log.Tracef("new template, unmarshal json params: %s", err)
		http.Error(w, "add template failed", http.StatusBadRequest)
		return
	}

	if err := validate(&template); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	template.VaultID = vaultID
	added, err := handler.repo.Add(ctx, template)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			http.Error(w, "error, template item references unknown exercise", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add new template [%s]: %s", template.Name, err)
		http.Error(w, "error, failed to add new template", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new template: %s", err)
		http.Error(w, "error, failed to add new template", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.list")
	defer span.End()

	vaultID := mux.Vars(r)["vaultId"]

	all, err := handler.repo.List(ctx, vaultID)
	if err != nil {
		log.Errorf("failed to list templates [vault %s]: %s", vaultID, err)
		http.Error(w, "failed to list templates", http.StatusInternalServerError)
		return
	}

	allJson, err := json.Marshal(all)
	if err != nil {
		http.Error(w, "failed to marshal templates", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, allJson, http.StatusOK)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.get")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := handler.repo.Get(ctx, vaultID, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get template %d: %s", id, err)
		http.Error(w, "failed to get template", http.StatusInternalServerError)
		return
	}

	tJson, err := json.Marshal(t)
	if err != nil {
		http.Error(w, "failed to marshal template", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, tJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.update")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var template Template
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		http.Error(w, "update template failed", http.StatusBadRequest)
		return
	}

	if err := validate(&template); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	template.ID = id
	template.VaultID = vaultID
	if err := handler.repo.Update(ctx, &template); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update template %d: %s", id, err)
		http.Error(w, "error, failed to update template", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	tJson, err := json.Marshal(template)
	if err != nil {
		http.Error(w, "error, failed to update template", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, tJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.templates.delete")
	defer span.End()

	vaultID, id, err := vaultAndID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, vaultID, id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			http.Error(w, "template not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete template %d: %s", id, err)
		http.Error(w, "error, failed to delete template", http.StatusInternalServerError)
		return
	}

	handler.marker.Bump(ctx, vaultID)

	resp, err := json.Marshal(DeleteTemplateResponse{DeletedID: id})
	if err != nil {
		http.Error(w, "error, failed to delete template", http.StatusInternalServerError)
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
