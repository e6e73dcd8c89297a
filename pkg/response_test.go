package pkg

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteResponseBytes(t *testing.T) {
	rec := httptest.NewRecorder()

	sessionJson := `{"id":42,"entries":[]}`
	WriteResponseBytes(rec, ContentType.JSON, []byte(sessionJson), http.StatusCreated)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ContentType.JSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, sessionJson, rec.Body.String())
}

func TestWriteResponseBytesOK(t *testing.T) {
	rec := httptest.NewRecorder()

	prJson := `{"exerciseId":7,"prType":"REPS_MAX_WEIGHT"}`
	WriteResponseBytesOK(rec, ContentType.JSON, []byte(prJson))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentType.JSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, prJson, rec.Body.String())
}

func TestWriteResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteResponse(rec, ContentType.Text, "session discarded", http.StatusOK)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentType.Text, rec.Header().Get("Content-Type"))
	assert.Equal(t, "session discarded", rec.Body.String())
}

func TestWriteTextResponseOK(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteTextResponseOK(rec, "deleted:5")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentType.Text, rec.Header().Get("Content-Type"))
	assert.Equal(t, "deleted:5", rec.Body.String())
}

func TestWriteJSONResponseOK(t *testing.T) {
	rec := httptest.NewRecorder()

	volumeJson := `{"kind":"MUSCLE_GROUP","muscles":[]}`
	WriteJSONResponseOK(rec, volumeJson)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentType.JSON, rec.Header().Get("Content-Type"))
	assert.Equal(t, volumeJson, rec.Body.String())
}
