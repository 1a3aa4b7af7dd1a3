package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/jwalitptl/dental-admin/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewNotFound("patient p9", apperrors.ErrRecordNotFound), http.StatusNotFound},
		{apperrors.NewBadRequest("invalid incident", nil), http.StatusBadRequest},
		{apperrors.NewFileReadFailure("x.png", errors.New("eof")), http.StatusBadRequest},
		{apperrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperrors.Forbidden(nil), http.StatusForbidden},
		{fmt.Errorf("failed to persist: %w", apperrors.NewStorageUnavailable("set k", errors.New("down"))), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func TestError_HidesInternalMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, errors.New("db password is hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"internal server error"}`, rec.Body.String())
	assert.Len(t, c.Errors, 1)
}

func TestError_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, apperrors.NewNotFound("incident i9", apperrors.ErrRecordNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "incident i9 not found")
}
