package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/palemoky/uno-lobby/internal/protocol"
)

func TestStoreError_Wraps(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("读取房间失败: %w", NewStoreError("read", cause))

	var storeErr *StoreError
	assert.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "read", storeErr.Op)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "store read: connection refused", storeErr.Error())
}

func TestNewStoreError_Nil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewStoreError("read", nil))
}

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"game error", ErrDuplicateJoin, protocol.ErrCodeDuplicateJoin},
		{"wrapped game error", fmt.Errorf("join: %w", ErrLobbyNotFound), protocol.ErrCodeLobbyNotFound},
		{"store error", NewStoreError("create", errors.New("boom")), protocol.ErrCodeStore},
		{"plain error", errors.New("boom"), protocol.ErrCodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
