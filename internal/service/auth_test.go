package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/linkcut/linkcut/internal/auth"
	"github.com/linkcut/linkcut/internal/model"
	"github.com/linkcut/linkcut/internal/repository"
)

type fakeUserStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: make(map[string]*model.User)}
}

func (f *fakeUserStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[user.Email]; ok {
		return repository.ErrEmailExists
	}
	clone := *user
	f.byEmail[user.Email] = &clone
	return nil
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byEmail {
		if user.ID == id {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func newAuthService() (*AuthService, *fakeUserStore) {
	store := newFakeUserStore()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewAuthService(store, issuer), store
}

func TestRegister_CreatesAccountWithToken(t *testing.T) {
	svc, store := newAuthService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "  Alice@Example.COM ", "long-enough-password")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Emails are normalized before storage.
	require.Equal(t, "alice@example.com", user.Email)
	require.Equal(t, model.RoleUser, user.Role)
	require.NotEqual(t, "long-enough-password", user.PasswordHash)

	stored, err := store.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
}

func TestRegister_Rejections(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"invalid_email", "not-an-email", "long-enough-password", ErrInvalidEmail},
		{"empty_email", "", "long-enough-password", ErrInvalidEmail},
		{"short_password", "bob@example.com", "short", ErrWeakPassword},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tc.email, tc.password)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "carol@example.com", "long-enough-password")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "carol@example.com", "another-password-1")
	require.ErrorIs(t, err, ErrEmailTaken)

	// Normalization catches case and whitespace variants too.
	_, _, err = svc.Register(ctx, " CAROL@example.com", "another-password-1")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin_RoundTrip(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, "dave@example.com", "correct-horse-battery")
	require.NoError(t, err)

	user, token, err := svc.Login(ctx, "Dave@Example.com", "correct-horse-battery")
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.NotEmpty(t, token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "erin@example.com", "correct-horse-battery")
	require.NoError(t, err)

	// Wrong password and unknown email produce the same error.
	_, _, err = svc.Login(ctx, "erin@example.com", "wrong-password-okay")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "correct-horse-battery")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_TokenCarriesIdentity(t *testing.T) {
	store := newFakeUserStore()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := NewAuthService(store, issuer)
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "frank@example.com", "long-enough-password")
	require.NoError(t, err)

	identity, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, user.ID, identity.UserID)
	require.Equal(t, user.Email, identity.Email)
	require.Equal(t, model.RoleUser, identity.Role)
}
