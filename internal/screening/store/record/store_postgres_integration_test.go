//go:build integration

package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/screening/models"
	"vigil/internal/screening/ports"
	"vigil/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *PostgresStore
	ctx   context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.pg.ExecSchema(s.T(), Schema())
	s.store = NewPostgresStore(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.pg.DB.Exec(`TRUNCATE watchlist_records`)
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestConditionalUpsert() {
	birth := time.Date(1957, 4, 4, 0, 0, 0, 0, time.UTC)
	record := models.WatchlistRecord{
		ID:          "A",
		Dataset:     "sanctions_national",
		PrimaryName: "JUAN PEREZ",
		Aliases:     []string{"J PEREZ"},
		BirthDate:   &birth,
		Countries:   []string{"MX"},
		Identifiers: []models.Identifier{{Type: "RFC", Value: "PEGJ570404"}},
		LastChange:  "2024-01-01",
	}

	written, err := s.store.Upsert(s.ctx, record)
	s.Require().NoError(err)
	s.True(written)

	s.Run("round trip preserves fields", func() {
		got, err := s.store.Get(s.ctx, "sanctions_national", "A")
		s.Require().NoError(err)
		s.Equal("JUAN PEREZ", got.PrimaryName)
		s.Equal([]string{"J PEREZ"}, got.Aliases)
		s.Equal([]string{"MX"}, got.Countries)
		s.Require().NotNil(got.BirthDate)
		s.Equal("1957-04-04", got.BirthDate.Format("2006-01-02"))
		s.Require().Len(got.Identifiers, 1)
		s.Equal("RFC", got.Identifiers[0].Type)
		s.Equal("2024-01-01", got.LastChange)
	})

	s.Run("replay of same version is skipped", func() {
		replay := record
		replay.PrimaryName = "REPLAYED"
		written, err := s.store.Upsert(s.ctx, replay)
		s.Require().NoError(err)
		s.False(written)
	})

	s.Run("newer version overwrites", func() {
		updated := record
		updated.PrimaryName = "JUAN PEREZ LOPEZ"
		updated.LastChange = "2024-06-01"
		written, err := s.store.Upsert(s.ctx, updated)
		s.Require().NoError(err)
		s.True(written)

		got, err := s.store.Get(s.ctx, "sanctions_national", "A")
		s.Require().NoError(err)
		s.Equal("JUAN PEREZ LOPEZ", got.PrimaryName)
	})
}

func (s *PostgresStoreSuite) TestUpsertManyAndGetMany() {
	batch := make([]models.WatchlistRecord, 0, 10)
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		batch = append(batch, models.WatchlistRecord{
			ID:          id,
			Dataset:     "un_consolidated",
			PrimaryName: "NAME " + id,
			LastChange:  "2024-01-01",
		})
	}

	written, failed, err := s.store.UpsertMany(s.ctx, batch)
	s.Require().NoError(err)
	s.Equal(5, written)
	s.Equal(0, failed)

	s.Run("replay is idempotent", func() {
		written, failed, err := s.store.UpsertMany(s.ctx, batch)
		s.Require().NoError(err)
		s.Equal(0, written)
		s.Equal(0, failed)
	})

	s.Run("bulk fetch excludes missing ids", func() {
		records, err := s.store.GetMany(s.ctx, "un_consolidated", []string{"A", "C", "missing"})
		s.Require().NoError(err)
		s.Len(records, 2)
	})

	s.Run("list returns the full dataset", func() {
		records, err := s.store.ListDataset(s.ctx, "un_consolidated")
		s.Require().NoError(err)
		s.Len(records, 5)
	})
}

func (s *PostgresStoreSuite) TestDeleteDataset() {
	_, err := s.store.Upsert(s.ctx, models.WatchlistRecord{
		ID: "A", Dataset: "tax_delinquents", PrimaryName: "X", LastChange: "1",
	})
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteDataset(s.ctx, "tax_delinquents"))

	_, err = s.store.Get(s.ctx, "tax_delinquents", "A")
	s.ErrorIs(err, ports.ErrNotFound)
}
