package services

import (
	"context"
	"testing"

	"github.com/BradenHooton/portal/internal/models"
	pkgauth "github.com/BradenHooton/portal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordAuthenticator(t *testing.T) {
	hash, err := pkgauth.HashPassword("correct-horse")
	require.NoError(t, err)

	users := map[string]*models.User{
		"alice":    {Username: "alice", PasswordHash: hash, Active: true},
		"disabled": {Username: "disabled", PasswordHash: hash, Active: false},
		"locked":   {Username: "locked", PasswordHash: hash, Active: true, Locked: true},
	}
	repo := &MockUserRepository{
		FindByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			if u, ok := users[username]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
	}
	authenticator := NewPasswordAuthenticator(repo, nil, newTestLogger())

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"valid", "alice", "correct-horse", nil},
		{"wrong password", "alice", "wrong", models.ErrBadCredentials},
		{"unknown user", "nobody", "correct-horse", models.ErrBadCredentials},
		{"disabled", "disabled", "correct-horse", models.ErrAccountDisabled},
		{"locked", "locked", "correct-horse", models.ErrAccountLocked},
		{"locked with wrong password", "locked", "wrong", models.ErrAccountLocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authenticator.Authenticate(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, user.Username)
		})
	}
}
