package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnauthenticated(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unauthorized", ErrorUnauthorized, true},
		{"wrapped unauthorized", fmt.Errorf("%w: invalid email or password", ErrorUnauthorized), true},
		{"invalid token", ErrInvalidToken, true},
		{"expired token", fmt.Errorf("verify: %w", ErrTokenExpired), true},
		{"validation", ErrorValidation, false},
		{"forbidden", ErrorForbidden, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnauthenticated(tt.err))
		})
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}
