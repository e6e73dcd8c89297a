package exercises

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/revalidate"
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
)

func testHandlerAndRouter(repo exercisesRepo) *mux.Router {
	rdb, redisMock := redismock.NewClientMock()
	redisMock.MatchExpectationsInOrder(false)
	redisMock.Regexp().ExpectIncr(`workouts::vault-version::.*`).SetVal(1)

	handler := NewHandler(repo, revalidate.NewMarker(rdb))
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router
}

func TestHandleAddAndGet(t *testing.T) {
	repo := NewMockExercisesRepo()
	router := testHandlerAndRouter(repo)

	body := `{"name":"Bench Press","modality":"REPS","usesBodyweight":false}`
	req := httptest.NewRequest("POST", "/vaults/vault1/exercises", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var added Exercise
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "Bench Press", added.Name)
	assert.Equal(t, "vault1", added.VaultID)
	assert.NotZero(t, added.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/exercises/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// another vault cannot see it
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault2/exercises/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAdd_Invalid(t *testing.T) {
	router := testHandlerAndRouter(NewMockExercisesRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"POST", "/vaults/vault1/exercises",
		bytes.NewBufferString(`{"name":"","modality":"REPS"}`),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"POST", "/vaults/vault1/exercises",
		bytes.NewBufferString(`{"name":"Plank","modality":"CARDIO"}`),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleReplaceTargets(t *testing.T) {
	ctx := context.Background()
	repo := NewMockExercisesRepo()
	router := testHandlerAndRouter(repo)

	added, err := repo.Add(ctx, Exercise{VaultID: "vault1", Name: "Squat", Modality: ModalityReps})
	require.NoError(t, err)
	require.NoError(t, repo.UpsertTargetLink(ctx, TargetLink{
		ExerciseID: added.ID, TargetID: 10, Role: rolePtr(targets.RolePrimary),
	}))
	require.NoError(t, repo.UpsertTargetLink(ctx, TargetLink{
		ExerciseID: added.ID, TargetID: 20, Role: rolePtr(targets.RoleSecondary),
	}))

	body := `{"targets":[
		{"targetId":10,"role":"STABILIZER"},
		{"targetId":30,"confidence":"HIGH"}
	]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"PUT", "/vaults/vault1/exercises/1/targets", bytes.NewBufferString(body),
	))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReplaceTargetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Upserted)
	assert.Equal(t, 1, resp.Deleted)

	links, err := repo.ListTargetLinks(ctx, "vault1", added.ID)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, int64(10), links[0].TargetID)
	assert.Equal(t, targets.RoleStabilizer, *links[0].Role)
	assert.Equal(t, int64(30), links[1].TargetID)
}

func TestHandleReplaceTargets_InvalidLink(t *testing.T) {
	ctx := context.Background()
	repo := NewMockExercisesRepo()
	router := testHandlerAndRouter(repo)

	_, err := repo.Add(ctx, Exercise{VaultID: "vault1", Name: "Squat", Modality: ModalityReps})
	require.NoError(t, err)

	// role and confidence together are rejected before any write
	body := `{"targets":[{"targetId":10,"role":"PRIMARY","confidence":"HIGH"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"PUT", "/vaults/vault1/exercises/1/targets", bytes.NewBufferString(body),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	links, err := repo.ListTargetLinks(ctx, "vault1", 1)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestHandleDelete_NotFound(t *testing.T) {
	router := testHandlerAndRouter(NewMockExercisesRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/vaults/vault1/exercises/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
