package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sokoline/sokoline/internal/rbac"
	"github.com/sokoline/sokoline/internal/shared"
)

type memoryRepo struct {
	users    map[string]*User
	sessions map[string]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*User), sessions: make(map[string]int64)}
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *memoryRepo) CreateUser(ctx context.Context, user User) (int64, error) {
	r.nextID++
	user.ID = r.nextID
	r.users[user.Email] = &user
	return user.ID, nil
}

func (r *memoryRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = userID
	return nil
}

func (r *memoryRepo) DeleteSession(ctx context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func addUser(t *testing.T, repo *memoryRepo, email, password, role string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.nextID++
	repo.users[email] = &User{ID: repo.nextID, Email: email, PasswordHash: string(hash), Role: role, IsActive: active}
}

func TestAuthenticate(t *testing.T) {
	repo := newMemoryRepo()
	addUser(t, repo, "client@sokoline.cm", "motdepasse", rbac.RoleCustomer, true)
	addUser(t, repo, "ferme@sokoline.cm", "motdepasse", rbac.RoleSupplier, false)
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "client@sokoline.cm", "motdepasse")
	require.NoError(t, err)
	require.Equal(t, rbac.RoleCustomer, user.Role)

	_, err = svc.Authenticate(ctx, "client@sokoline.cm", "mauvais")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "inconnu@sokoline.cm", "motdepasse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// inactive accounts cannot log in
	_, err = svc.Authenticate(ctx, "ferme@sokoline.cm", "motdepasse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterRestrictsRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Email: "A@Sokoline.CM", Name: "Ama", Password: "motdepasse"})
	require.NoError(t, err)
	require.Equal(t, "a@sokoline.cm", user.Email)
	require.Equal(t, rbac.RoleCustomer, user.Role)

	grossiste, err := svc.Register(ctx, RegisterInput{Email: "g@sokoline.cm", Name: "Gros", Password: "motdepasse", Role: rbac.RoleWholesale})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleWholesale, grossiste.Role)

	sneaky, err := svc.Register(ctx, RegisterInput{Email: "s@sokoline.cm", Name: "S", Password: "motdepasse", Role: rbac.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleCustomer, sneaky.Role)

	_, err = svc.Register(ctx, RegisterInput{Email: "a@sokoline.cm", Name: "Dup", Password: "motdepasse"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestProvisionAllowsStaffRoles(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Provision(ctx, ProvisionInput{Email: "staff@sokoline.cm", Name: "Staff", Password: "motdepasse", Role: rbac.RoleEmployee})
	require.NoError(t, err)
	require.Equal(t, rbac.RoleEmployee, user.Role)

	_, err = svc.Provision(ctx, ProvisionInput{Email: "x@sokoline.cm", Name: "X", Password: "motdepasse", Role: "SUPERUSER"})
	require.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.RegisterSession(ctx, "sess-1", 42, time.Now().Add(time.Hour), "127.0.0.1", "test"))
	require.Equal(t, int64(42), repo.sessions["sess-1"])
	require.NoError(t, svc.RemoveSession(ctx, "sess-1"))
	require.NotContains(t, repo.sessions, "sess-1")
}
