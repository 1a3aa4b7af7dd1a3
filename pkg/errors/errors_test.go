package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("failed to persist patients: %w", NewStorageUnavailable("set dental_patients", stderrors.New("disk full")))

	assert.True(t, stderrors.Is(err, ErrStorageUnavailable))
	assert.False(t, stderrors.Is(err, ErrRecordNotFound))
	assert.Contains(t, err.Error(), "disk full")
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewFileReadFailure("xray.png", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, ErrFileReadFailure))
	assert.Equal(t, `failed to read file "xray.png": boom`, err.Error())
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCredentials, CodeOf(fmt.Errorf("login: %w", ErrInvalidCredentials)))
	assert.Equal(t, ErrNotFound, CodeOf(NotFound("patient", nil)))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("plain")))
}
