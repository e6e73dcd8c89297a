package analytics

import (
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
	"github.com/Angrypuncake/Gym-Logger-sub000/internal/telemetry/metrics"
)

type repoStub struct {
	muscleRows  []MuscleRow
	tendonRows  []TendonRow
	muscleCalls int
	tendonCalls int
}

func (r *repoStub) ListMuscleRows(_ context.Context, _, _, _ string) ([]MuscleRow, error) {
	r.muscleCalls++
	return r.muscleRows, nil
}

func (r *repoStub) ListTendonRows(_ context.Context, _, _, _ string) ([]TendonRow, error) {
	r.tendonCalls++
	return r.tendonRows, nil
}

func TestHandleVolume(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &repoStub{
		muscleRows: []MuscleRow{
			{TargetID: 1, TargetName: "Chest", WeekStart: "2024-01-01", SetCount: 5, Reps: 40},
		},
	}
	handler := NewHandler(repo, revalidate.NewMarker(rdb), revalidate.NewViewCache(1024*1024), metrics.NewTestManager())

	router := mux.NewRouter()
	handler.SetupRoutes(router)

	versionKey := "workouts::vault-version::vault1"
	redisMock.ExpectGet(versionKey).SetVal("7")

	req := httptest.NewRequest("GET", "/vaults/vault1/analytics/volume?kind=MUSCLE_GROUP&sort=sets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report VolumeReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.Muscles, 1)
	assert.Equal(t, "Chest", report.Muscles[0].TargetName)
	require.NotNil(t, report.SelectedTargetID)
	assert.Equal(t, int64(1), *report.SelectedTargetID)
	assert.Equal(t, 1, repo.muscleCalls)

	// same version, same query: served from the view cache
	redisMock.ExpectGet(versionKey).SetVal("7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/analytics/volume?kind=MUSCLE_GROUP&sort=sets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.muscleCalls)

	// a bumped version misses the cache and recomputes
	redisMock.ExpectGet(versionKey).SetVal("8")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/analytics/volume?kind=MUSCLE_GROUP&sort=sets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, repo.muscleCalls)

	require.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandleVolume_RedisDownDegradesToUncached(t *testing.T) {
	rdb, redisMock := redismock.NewClientMock()
	repo := &repoStub{}
	handler := NewHandler(repo, revalidate.NewMarker(rdb), revalidate.NewViewCache(1024*1024), metrics.NewTestManager())

	router := mux.NewRouter()
	handler.SetupRoutes(router)

	redisMock.ExpectGet("workouts::vault-version::vault1").SetErr(assert.AnError)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/analytics/volume", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, repo.muscleCalls)
}

func TestHandleVolume_BadParams(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	handler := NewHandler(&repoStub{}, revalidate.NewMarker(rdb), revalidate.NewViewCache(1024*1024), metrics.NewTestManager())

	router := mux.NewRouter()
	handler.SetupRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/analytics/volume?kind=BONES", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/vaults/vault1/analytics/volume?selected=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
