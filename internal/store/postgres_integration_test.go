//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"casemap/internal/gazetteer"
	"casemap/internal/models"
	"casemap/internal/store"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	store     *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("casemap"),
		tcpostgres.WithUsername("casemap"),
		tcpostgres.WithPassword("casemap"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.store, err = store.NewPostgresStore(ctx, dsn)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.store != nil {
		s.store.Close()
	}

	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.store.Truncate(context.Background()))
}

func record(title, url, state string) *models.CaseRecord {
	return &models.CaseRecord{Title: title, URL: url, Source: "teste", Geography: gazetteer.GeographyFor(state)}
}

func (s *PostgresStoreSuite) TestInsertAndFind() {
	ctx := context.Background()

	id, err := s.store.Insert(ctx, record("Fraude no Piauí", "https://exemplo.com/piaui", "Piauí"))
	s.Require().NoError(err)
	s.Positive(id)

	byTitle, err := s.store.FindByTitleOrURL(ctx, "Fraude no Piauí", "https://outro")
	s.Require().NoError(err)
	s.Require().NotNil(byTitle)
	s.Equal(id, byTitle.ID)
	s.Equal("Nordeste", byTitle.RegionName())

	byURL, err := s.store.FindByTitleOrURL(ctx, "Outro", "https://exemplo.com/piaui")
	s.Require().NoError(err)
	s.NotNil(byURL)

	none, err := s.store.FindByTitleOrURL(ctx, "Outro", "")
	s.Require().NoError(err)
	s.Nil(none)
}

func (s *PostgresStoreSuite) TestUniqueViolationIsStorageConflict() {
	ctx := context.Background()

	_, err := s.store.Insert(ctx, record("Caso", "https://a", ""))
	s.Require().NoError(err)

	_, err = s.store.Insert(ctx, record("Caso", "https://b", ""))
	s.ErrorIs(err, store.ErrStorage)
	s.ErrorIs(err, store.ErrConflict)

	// Empty urls are exempt from the url index.
	_, err = s.store.Insert(ctx, record("Sem url 1", "", ""))
	s.Require().NoError(err)
	_, err = s.store.Insert(ctx, record("Sem url 2", "", ""))
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestUpdateGeography() {
	ctx := context.Background()

	id, err := s.store.Insert(ctx, record("Caso", "https://a", "Nacional"))
	s.Require().NoError(err)

	s.Require().NoError(s.store.UpdateGeography(ctx, id, models.Geography{}))

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Nil(all[0].State)
	s.Nil(all[0].Region)

	s.Require().NoError(s.store.UpdateGeography(ctx, id, gazetteer.GeographyFor("Paraná")))

	rows, err := s.store.ListByState(ctx, "Paraná")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Sul", rows[0].RegionName())

	s.ErrorIs(s.store.UpdateGeography(ctx, id+100, models.Geography{}), store.ErrNotFound)
}

// TestConcurrentInsertSameURL verifies the unique index admits exactly one
// row when many writers race on the same url.
func (s *PostgresStoreSuite) TestConcurrentInsertSameURL() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var inserted atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			title := "Caso " + string(rune('A'+idx))
			if _, err := s.store.Insert(ctx, record(title, "https://mesmo", "")); err == nil {
				inserted.Add(1)
			}
		}(i)
	}

	wg.Wait()

	s.Equal(int32(1), inserted.Load())

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}
