package authpw

import (
	"context"
	"errors"
	"testing"

	"nagarconnect/api/internal/store"
)

type mockUserStore struct {
	users      map[string]store.User
	emailIndex map[string]string
	nextID     int
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		users:      make(map[string]store.User),
		emailIndex: make(map[string]string),
	}
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (store.User, error) {
	if userID, ok := m.emailIndex[email]; ok {
		return m.users[userID], nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) GetUserByID(ctx context.Context, userID string) (store.User, error) {
	if user, ok := m.users[userID]; ok {
		return user, nil
	}
	return store.User{}, store.ErrNotFound
}

func (m *mockUserStore) CreateUser(ctx context.Context, user store.User) (store.User, error) {
	if _, ok := m.emailIndex[user.Email]; ok {
		return store.User{}, store.ErrConflict
	}
	m.nextID++
	user.ID = string(rune('a' + m.nextID))
	m.users[user.ID] = user
	m.emailIndex[user.Email] = user.ID
	return user, nil
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockUserStore())

	t.Run("successful sign up", func(t *testing.T) {
		user, err := svc.SignUp(ctx, SignUpRequest{
			Name:     "Asha Verma",
			Email:    "asha@example.com",
			Password: "password123",
			Language: "hi",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.ID == "" {
			t.Error("expected ID to be assigned")
		}
		if user.Role != "citizen" {
			t.Errorf("expected role citizen, got %s", user.Role)
		}
		if user.Language != "hi" {
			t.Errorf("expected language hi, got %s", user.Language)
		}
		if user.PasswordHash == "password123" {
			t.Error("expected password to be hashed")
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Name:     "Someone Else",
			Email:    "asha@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Name:     "Short Pass",
			Email:    "short@example.com",
			Password: "short",
		})
		if err == nil {
			t.Error("expected error for short password")
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		_, err := svc.SignUp(ctx, SignUpRequest{
			Name:     "Bad Email",
			Email:    "not-an-email",
			Password: "password123",
		})
		if err == nil {
			t.Error("expected error for invalid email")
		}
	})

	t.Run("unknown language falls back to english", func(t *testing.T) {
		user, err := svc.SignUp(ctx, SignUpRequest{
			Name:     "Ravi Kumar",
			Email:    "ravi@example.com",
			Password: "password123",
			Language: "",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Language != "en" {
			t.Errorf("expected language en, got %s", user.Language)
		}
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMockUserStore())

	if _, err := svc.SignUp(ctx, SignUpRequest{
		Name:     "Asha Verma",
		Email:    "asha@example.com",
		Password: "password123",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	t.Run("successful sign in", func(t *testing.T) {
		user, err := svc.SignIn(ctx, SignInRequest{
			Email:    "asha@example.com",
			Password: "password123",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "asha@example.com" {
			t.Errorf("expected email asha@example.com, got %s", user.Email)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "asha@example.com",
			Password: "wrongpassword",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.SignIn(ctx, SignInRequest{
			Email:    "nobody@example.com",
			Password: "password123",
		})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
