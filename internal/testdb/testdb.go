// Package testdb opens an in-memory sqlite database with the full schema and
// offers small fixture builders for repository and service tests.
package testdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/housebook/housebook-backend/pkg/db"
	"github.com/housebook/housebook-backend/pkg/db/models"
	dbtypes "github.com/housebook/housebook-backend/pkg/db/types"
	"github.com/housebook/housebook-backend/pkg/enums"
	"github.com/housebook/housebook-backend/pkg/migrate"
)

// Open returns a fresh database private to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLiteSchema(context.Background(), conn))
	return conn
}

// Client wraps Open in a *db.Client for services that need WithTx.
func Client(t testing.TB) *db.Client {
	t.Helper()
	return db.Wrap(Open(t))
}

func NewUser(t testing.TB, conn *gorm.DB, first, last string) models.User {
	t.Helper()
	user := models.User{
		Email:        fmt.Sprintf("%s.%s@example.com", strings.ToLower(first), uuid.NewString()[:8]),
		PasswordHash: "hash",
		FirstName:    first,
		LastName:     last,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

func NewOwner(t testing.TB, conn *gorm.DB, first, last string) (models.User, models.Owner) {
	t.Helper()
	user := NewUser(t, conn, first, last)
	owner := models.Owner{UserID: user.ID}
	require.NoError(t, conn.Create(&owner).Error)
	return user, owner
}

func NewTradie(t testing.TB, conn *gorm.DB, first, last string) (models.User, models.Tradesperson) {
	t.Helper()
	user := NewUser(t, conn, first, last)
	tradie := models.Tradesperson{UserID: user.ID}
	require.NoError(t, conn.Create(&tradie).Error)
	return user, tradie
}

func NewProperty(t testing.TB, conn *gorm.DB, name string, ownerIDs ...uuid.UUID) models.Property {
	t.Helper()
	property := models.Property{Name: name}
	require.NoError(t, conn.Create(&property).Error)
	for _, ownerID := range ownerIDs {
		require.NoError(t, conn.Create(&models.PropertyOwner{PropertyID: property.ID, OwnerID: ownerID}).Error)
	}
	return property
}

func NewSpace(t testing.TB, conn *gorm.DB, propertyID uuid.UUID, name string) models.Space {
	t.Helper()
	space := models.Space{PropertyID: propertyID, Name: name}
	require.NoError(t, conn.Create(&space).Error)
	return space
}

func NewAssetType(t testing.TB, conn *gorm.DB, name, discipline string) models.AssetType {
	t.Helper()
	assetType := models.AssetType{Name: name}
	if discipline != "" {
		assetType.Discipline = &discipline
	}
	require.NoError(t, conn.Create(&assetType).Error)
	return assetType
}

func NewAsset(t testing.TB, conn *gorm.DB, spaceID uuid.UUID, description string, assetTypeID *uuid.UUID) models.Asset {
	t.Helper()
	asset := models.Asset{SpaceID: spaceID, AssetTypeID: assetTypeID}
	if description != "" {
		asset.Description = &description
	}
	require.NoError(t, conn.Create(&asset).Error)
	return asset
}

// NewJob creates a pending job scoped to assetIDs.
func NewJob(t testing.TB, conn *gorm.DB, propertyID uuid.UUID, pin string, assetIDs ...uuid.UUID) models.Job {
	t.Helper()
	job := models.Job{PropertyID: propertyID, PIN: pin, Status: enums.JobStatusPending}
	require.NoError(t, conn.Create(&job).Error)
	for _, assetID := range assetIDs {
		require.NoError(t, conn.Create(&models.JobAsset{JobID: job.ID, AssetID: assetID}).Error)
	}
	return job
}

// AcceptJob assigns job to tradieID the way a successful claim would.
func AcceptJob(t testing.TB, conn *gorm.DB, jobID, tradieID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Job{}).Where("id = ?", jobID).
		Updates(map[string]any{"tradie_id": tradieID, "status": enums.JobStatusAccepted}).Error)
}

func NewChangeLog(t testing.TB, conn *gorm.DB, assetID uuid.UUID, authorID *uuid.UUID, status enums.ChangeLogStatus, specs map[string]string, createdAt time.Time) models.ChangeLog {
	t.Helper()
	row := models.ChangeLog{
		AssetID:           assetID,
		Specifications:    dbtypes.Specifications(specs),
		ChangeDescription: "fixture",
		ChangedByUserID:   authorID,
		Status:            status,
		CreatedAt:         createdAt.UTC(),
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}
