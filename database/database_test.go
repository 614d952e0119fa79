package database

import (
	"context"
	"testing"

	"custombuttons-restful/auth"
	"custombuttons-restful/config"
	"custombuttons-restful/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.Config{DatabaseDriver: "oracle"}, zap.NewNop())
	assert.ErrorContains(t, err, "oracle")
}

func TestSeedInitialData(t *testing.T) {
	cfg := config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}
	db, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)

	log := zap.NewNop().Sugar()
	require.NoError(t, SeedInitialData(db, "s3cret", log))
	// Seeding twice must not duplicate anything.
	require.NoError(t, SeedInitialData(db, "other", log))

	var count int64
	require.NoError(t, db.Model(&models.Permission{}).Count(&count).Error)
	assert.EqualValues(t, len(auth.CapabilitiesFor("custom_buttons")), count)
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	var admin models.User
	require.NoError(t, db.Where("username = ?", "admin").First(&admin).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret")))

	checker := auth.NewPermissionChecker(db)
	ctx := context.Background()
	for _, c := range auth.CapabilitiesFor("custom_buttons") {
		ok, err := checker.Allowed(ctx, admin.ID, c)
		require.NoError(t, err)
		assert.True(t, ok, c)
	}

	var readOnly models.Role
	require.NoError(t, db.Preload("Permissions").Where("name = ?", ReadOnlyRole).First(&readOnly).Error)
	names := make([]string, 0, len(readOnly.Permissions))
	for _, p := range readOnly.Permissions {
		names = append(names, p.Name)
	}
	assert.ElementsMatch(t, []string{"custom_buttons:collection:read", "custom_buttons:resource:read"}, names)
}
