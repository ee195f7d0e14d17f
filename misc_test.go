package goresource

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Pet is the model used by pagination tests.
type Pet struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	Name      string
}

// Person and Toy are the models used by resource and service tests.
type Person struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"uniqueIndex"`
	Email string
}

type Toy struct {
	ID       uint `gorm:"primaryKey"`
	Name     string
	PersonID *uint
	Person   *Person
}

func newGORMMySQLMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      mockDB,
		SkipInitializeWithVersion: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "mysql", db.Debug(), mock, nil
}

func newGORMPostgresMock() (string, *gorm.DB, sqlmock.Sqlmock, error) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		return "", nil, nil, err
	}

	dialector := postgres.New(postgres.Config{
		Conn: mockDB,
	})

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return "", nil, nil, err
	}

	return "postgres", db.Debug(), mock, nil
}

func newSQLiteDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(models...))

	return db
}

// seedPets inserts pets in the given order with strictly increasing creation
// timestamps, so that ordering by created_at reproduces insertion order.
func seedPets(t *testing.T, db *gorm.DB, names []string) {
	t.Helper()

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range names {
		pet := Pet{Name: name, CreatedAt: base.Add(time.Duration(i) * time.Millisecond)}
		require.NoError(t, db.Create(&pet).Error)
	}
}
