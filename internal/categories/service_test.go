package categories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	pkgerrors "github.com/peersenco/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newService(t *testing.T) Service {
	t.Helper()
	dsn := "file:categories_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		image_url TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func TestCategoryLifecycle(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	face, err := svc.Create(ctx, CreateInput{Name: "Ansiktspleie"})
	require.NoError(t, err)
	assert.Equal(t, "ansiktspleie", face.Slug)

	_, err = svc.Create(ctx, CreateInput{Name: "Kropp"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Name: "Duplicate", Slug: "ansiktspleie"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Ansiktspleie", list[0].Name)

	desc := "Alt for ansiktet"
	updated, err := svc.Update(ctx, face.ID, UpdateInput{Description: &desc})
	require.NoError(t, err)
	require.NotNil(t, updated.Description)
	assert.Equal(t, desc, *updated.Description)

	require.NoError(t, svc.Delete(ctx, face.ID))
	err = svc.Delete(ctx, face.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateRequiresName(t *testing.T) {
	svc := newService(t)
	_, err := svc.Create(context.Background(), CreateInput{Name: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
