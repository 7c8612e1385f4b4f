package apierror

import (
	"errors"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestAPIErrorError(t *testing.T) {
	err := NewAPIError(ErrPrecondition, "expenses belong to different hosts", nil)
	assert.Equal(t, "PRECONDITION_FAILED: expenses belong to different hosts", err.Error())
}

func TestClassification(t *testing.T) {
	precondition := NewAPIError(ErrPrecondition, "no host", nil)
	correlation := NewAPIError(ErrCorrelation, "batch id mismatch", nil)

	assert.True(t, IsPrecondition(precondition))
	assert.False(t, IsPrecondition(correlation))
	assert.True(t, IsCorrelation(correlation))
	assert.False(t, IsCorrelation(precondition))
	assert.False(t, IsPrecondition(errors.New("plain error")))

	// Classification should survive wrapping.
	wrapped := pkgerrors.Wrap(correlation, "reconcile expense 42")
	assert.True(t, IsCorrelation(wrapped))
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, MapErrorToHTTPStatus(NewAPIError(ErrNotFound, "missing", nil)))
	assert.Equal(t, http.StatusPreconditionFailed, MapErrorToHTTPStatus(NewAPIError(ErrPrecondition, "bad batch", nil)))
	assert.Equal(t, http.StatusConflict, MapErrorToHTTPStatus(NewAPIError(ErrCorrelation, "crossed batches", nil)))
	assert.Equal(t, http.StatusBadGateway, MapErrorToHTTPStatus(NewAPIError(ErrProvider, "provider down", nil)))
	assert.Equal(t, http.StatusInternalServerError, MapErrorToHTTPStatus(errors.New("unknown")))
}
