package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNonceManager(t *testing.T) {
	m := NewNonceManager("test-secret", time.Hour)

	token, err := m.Create(ActionChildManager, 7)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	tests := []struct {
		name    string
		manager *NonceManager
		token   string
		action  string
		userID  int64
		wantErr bool
	}{
		{name: "valid", manager: m, token: token, action: ActionChildManager, userID: 7},
		{name: "other user", manager: m, token: token, action: ActionChildManager, userID: 8, wantErr: true},
		{name: "other action", manager: m, token: token, action: ActionChildSubscription, userID: 7, wantErr: true},
		{name: "empty token", manager: m, token: "", action: ActionChildManager, userID: 7, wantErr: true},
		{name: "garbage", manager: m, token: "not-a-token", action: ActionChildManager, userID: 7, wantErr: true},
		{name: "other secret", manager: NewNonceManager("different", time.Hour), token: token, action: ActionChildManager, userID: 7, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manager.Verify(tt.token, tt.action, tt.userID)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNonce)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNonceManagerExpiry(t *testing.T) {
	m := NewNonceManager("test-secret", time.Minute)
	issued := time.Now()
	m.now = func() time.Time { return issued }

	token, err := m.Create(ActionChildManager, 1)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Minute) }
	assert.ErrorIs(t, m.Verify(token, ActionChildManager, 1), ErrInvalidNonce)
}
