package identifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/internal/screening/models"
)

type InMemoryIndexSuite struct {
	suite.Suite
	index *InMemoryIndex
	ctx   context.Context
}

func TestInMemoryIndexSuite(t *testing.T) {
	suite.Run(t, new(InMemoryIndexSuite))
}

func (s *InMemoryIndexSuite) SetupTest() {
	s.index = NewInMemoryIndex()
	s.ctx = context.Background()
}

func (s *InMemoryIndexSuite) TestInsertAndLookup() {
	entries := []models.IdentifierEntry{
		{Norm: "PEGJ570404", Dataset: "sanctions_national", RecordID: "A"},
		{Norm: "PEGJ570404", Dataset: "un_consolidated", RecordID: "U-1"},
		{Norm: "X123", Dataset: "sanctions_national", RecordID: "B"},
	}
	s.Require().NoError(s.index.InsertMany(s.ctx, entries))

	s.Run("lookup returns every owning record", func() {
		hits, err := s.index.LookupMany(s.ctx, []string{"PEGJ570404"})
		s.Require().NoError(err)
		s.Len(hits, 2)
	})

	s.Run("unknown value returns nothing", func() {
		hits, err := s.index.LookupMany(s.ctx, []string{"MISSING"})
		s.Require().NoError(err)
		s.Empty(hits)
	})

	s.Run("duplicate insert is a no-op", func() {
		s.Require().NoError(s.index.InsertMany(s.ctx, entries[:1]))
		hits, err := s.index.LookupMany(s.ctx, []string{"PEGJ570404"})
		s.Require().NoError(err)
		s.Len(hits, 2)
	})

	s.Run("empty normalized values are dropped", func() {
		s.Require().NoError(s.index.InsertMany(s.ctx, []models.IdentifierEntry{
			{Norm: "", Dataset: "sanctions_national", RecordID: "C"},
		}))
		hits, err := s.index.LookupMany(s.ctx, []string{""})
		s.Require().NoError(err)
		s.Empty(hits)
	})
}

func (s *InMemoryIndexSuite) TestDeleteDataset() {
	s.Require().NoError(s.index.InsertMany(s.ctx, []models.IdentifierEntry{
		{Norm: "PEGJ570404", Dataset: "sanctions_national", RecordID: "A"},
		{Norm: "PEGJ570404", Dataset: "un_consolidated", RecordID: "U-1"},
	}))

	s.Require().NoError(s.index.DeleteDataset(s.ctx, "sanctions_national"))

	hits, err := s.index.LookupMany(s.ctx, []string{"PEGJ570404"})
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("un_consolidated", hits[0].Dataset)
}
