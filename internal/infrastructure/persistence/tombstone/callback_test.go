package tombstone

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type widget struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string
	DeletedAt *time.Time
}

type note struct {
	ID   int
	Body string
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, Register(db))
	return db, mock
}

func exact(sql string) string {
	return "^" + regexp.QuoteMeta(sql) + "$"
}

func TestQueryFiltersTombstones(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(exact(`SELECT * FROM "widgets" WHERE "widgets"."deleted_at" IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "deleted_at"}))

	var ws []widget
	require.NoError(t, db.Find(&ws).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryKeepsCallerConditions(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(exact(`SELECT * FROM "widgets" WHERE name = $1 AND "widgets"."deleted_at" IS NULL`)).
		WithArgs("gear").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "deleted_at"}))

	var ws []widget
	require.NoError(t, db.Where("name = ?", "gear").Find(&ws).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnscopedSkipsFilter(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(exact(`SELECT * FROM "widgets"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "deleted_at"}))

	var ws []widget
	require.NoError(t, db.Unscoped().Find(&ws).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestModelsWithoutColumnAreUntouched(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(exact(`SELECT * FROM "notes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "body"}))

	var ns []note
	require.NoError(t, db.Find(&ns).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountFiltersTombstonesOnce(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectQuery(exact(`SELECT count(*) FROM "widgets" WHERE "widgets"."deleted_at" IS NULL`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	var n int64
	require.NoError(t, db.Model(&widget{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFiltersTombstones(t *testing.T) {
	db, mock := setupMockDB(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "widgets" SET "name"=\$1 WHERE "widgets"\."deleted_at" IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.Model(&widget{ID: id}).Update("name", "sprocket").Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}
