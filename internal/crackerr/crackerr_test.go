package crackerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatsWithAndWithoutCause(t *testing.T) {
	plain := New(CategoryEngine, CodeCapacityExceeded, "insert dropped")
	assert.Equal(t, "[ENGINE:CAPACITY_EXCEEDED] insert dropped", plain.Error())

	wrapped := Wrap(CategoryStorage, CodeDownloadFailed, "fetch column", fmt.Errorf("timeout"))
	assert.Equal(t, "[STORAGE:DOWNLOAD_FAILED] fetch column: timeout", wrapped.Error())
}

func TestUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := WrapNodeError(CodeNodeUnreachable, "dial node-1", cause)

	require.ErrorIs(t, err, cause)

	sentinel := NewNodeError(CodeNodeUnreachable, "")
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, NewNodeError(CodeColumnNotFound, "")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(WrapNodeError(CodeNodeUnreachable, "dial failed", nil)))
	assert.True(t, IsRetryable(WrapStorageError(CodeUploadFailed, "put failed", nil)))
	assert.False(t, IsRetryable(NewEngineError(CodeCapacityExceeded, "dropped")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
}

func TestCodeExtraction(t *testing.T) {
	err := NewCoordinatorError(CodeNoNodesRegistered, "no nodes")
	assert.Equal(t, CodeNoNodesRegistered, Code(err))
	assert.Equal(t, "", Code(fmt.Errorf("not a crack error")))
}
