package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/peersenco/storefront-backend/pkg/enums"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const usersDDL = `CREATE TABLE users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	full_name TEXT NOT NULL DEFAULT '',
	phone TEXT,
	role TEXT NOT NULL DEFAULT 'customer',
	last_login_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
)`

func newRepo(t *testing.T) *Repository {
	t.Helper()
	dsn := "file:users_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(usersDDL).Error)
	return NewRepository(conn)
}

func TestCreateNormalizesEmailAndRole(t *testing.T) {
	repo := newRepo(t)
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:        "  Kari@Example.NO ",
		PasswordHash: "hash",
		FullName:     " Kari Nordmann ",
	})
	require.NoError(t, err)
	assert.Equal(t, "kari@example.no", user.Email)
	assert.Equal(t, "Kari Nordmann", user.FullName)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)

	found, err := repo.FindByEmail(context.Background(), "kari@example.no")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestProfileUpdate(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	user, err := repo.Create(ctx, CreateUserDTO{Email: "ola@example.no", PasswordHash: "hash"})
	require.NoError(t, err)

	svc, err := NewProfileService(repo)
	require.NoError(t, err)

	name := "Ola Nordmann"
	phone := " 98765432 "
	updated, err := svc.Update(ctx, user.ID, UpdateProfileInput{FullName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "98765432", *updated.Phone)

	empty := ""
	cleared, err := svc.Update(ctx, user.ID, UpdateProfileInput{Phone: &empty})
	require.NoError(t, err)
	assert.Nil(t, cleared.Phone)
	assert.Equal(t, name, cleared.FullName)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Phone)

	_, err = svc.Get(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
