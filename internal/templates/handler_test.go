package templates

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
)

func testRouter(repo templatesRepo) *mux.Router {
	rdb, redisMock := redismock.NewClientMock()
	redisMock.MatchExpectationsInOrder(false)
	redisMock.Regexp().ExpectIncr(`workouts::vault-version::.*`).SetVal(1)

	handler := NewHandler(repo, revalidate.NewMarker(rdb))
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router
}

func TestHandleAddAndGet(t *testing.T) {
	repo := NewMockTemplatesRepo()
	router := testRouter(repo)

	body := `{
		"name": "Push Day",
		"items": [
			{"exerciseId": 100, "targetSets": 3},
			{"exerciseId": 200}
		]
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/vaults/vault1/templates", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var added Template
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))
	assert.Equal(t, "Push Day", added.Name)
	require.Len(t, added.Items, 2)
	// items keep the submitted order
	assert.Equal(t, 0, added.Items[0].SortOrder)
	assert.Equal(t, 1, added.Items[1].SortOrder)
	require.NotNil(t, added.Items[0].TargetSets)
	assert.Equal(t, 3, *added.Items[0].TargetSets)
	assert.Nil(t, added.Items[1].TargetSets)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault2/templates/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleAdd_Invalid(t *testing.T) {
	router := testRouter(NewMockTemplatesRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"POST", "/vaults/vault1/templates",
		bytes.NewBufferString(`{"name":""}`),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"POST", "/vaults/vault1/templates",
		bytes.NewBufferString(`{"name":"Legs","items":[{"exerciseId":0}]}`),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(
		"POST", "/vaults/vault1/templates",
		bytes.NewBufferString(`{"name":"Legs","items":[{"exerciseId":100,"targetSets":-1}]}`),
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUpdate_ReplacesItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMockTemplatesRepo()
	router := testRouter(repo)

	three := 3
	_, err := repo.Add(ctx, Template{
		VaultID: "vault1",
		Name:    "Push Day",
		Items: []Item{
			{ExerciseID: 100, TargetSets: &three},
		},
	})
	require.NoError(t, err)

	body := `{"name":"Push Day v2","items":[{"exerciseId":200},{"exerciseId":300}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("PUT", "/vaults/vault1/templates/1", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := repo.Get(ctx, "vault1", 1)
	require.NoError(t, err)
	assert.Equal(t, "Push Day v2", got.Name)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(200), got.Items[0].ExerciseID)
	assert.Equal(t, int64(300), got.Items[1].ExerciseID)
}

func TestHandleDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMockTemplatesRepo()
	router := testRouter(repo)

	_, err := repo.Add(ctx, Template{VaultID: "vault1", Name: "Push Day"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/vaults/vault1/templates/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = repo.Get(ctx, "vault1", 1)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("DELETE", "/vaults/vault1/templates/1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
