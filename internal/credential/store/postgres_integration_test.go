//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/credential/models"
	"gatepass/internal/directory"
	visitmodels "gatepass/internal/visit/models"
	visitstore "gatepass/internal/visit/store"
	"gatepass/pkg/sentinel"
	"gatepass/pkg/testutil/containers"
)

type CredentialPostgresSuite struct {
	suite.Suite
	ctx       context.Context
	pg        *containers.PostgresContainer
	store     *PostgresStore
	visitorID int64
	visitID   int64
	now       time.Time
}

func TestCredentialPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(CredentialPostgresSuite))
}

func (s *CredentialPostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T(), "../../../migrations/schema.sql")
	s.store = NewPostgres(s.pg.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)

	dir := directory.NewPostgres(s.pg.DB)
	visitor, err := dir.CreateVisitor(s.ctx, directory.Visitor{FullName: "Tariq Nasser"})
	s.Require().NoError(err)
	s.visitorID = visitor.ID
	site, err := dir.CreateSite(s.ctx, directory.Site{Name: "South Gate"})
	s.Require().NoError(err)

	visit, err := visitstore.NewPostgres(s.pg.DB).Create(s.ctx, visitmodels.Visit{
		VisitorID: visitor.ID,
		SiteID:    site.ID,
		Status:    visitmodels.StatusPending,
	})
	s.Require().NoError(err)
	s.visitID = visit.ID
}

func (s *CredentialPostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "credentials"))
}

func (s *CredentialPostgresSuite) insert(code string, expires *time.Time) models.Credential {
	c, err := s.store.Insert(s.ctx, models.Credential{
		Code:      code,
		Kind:      models.KindVisitor,
		SubjectID: s.visitorID,
		VisitID:   s.visitID,
		IssuedAt:  s.now,
		ExpiresAt: expires,
		Status:    models.StatusActive,
	})
	s.Require().NoError(err)
	return c
}

func (s *CredentialPostgresSuite) TestInsertAndLookup() {
	expiry := s.now.Add(24 * time.Hour)
	c := s.insert("VIS_77_aabb00112233", &expiry)
	s.NotZero(c.ID)

	found, err := s.store.Lookup(s.ctx, "VIS_77_aabb00112233")
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.Equal(models.KindVisitor, found.Kind)
	s.Equal(s.visitID, found.VisitID)
	s.Require().NotNil(found.ExpiresAt)
	s.WithinDuration(expiry, *found.ExpiresAt, time.Millisecond)
}

func (s *CredentialPostgresSuite) TestCodeCollisionIsConflict() {
	s.insert("VIS_77_aabb00112233", nil)
	_, err := s.store.Insert(s.ctx, models.Credential{
		Code:      "VIS_77_aabb00112233",
		Kind:      models.KindVisitor,
		SubjectID: s.visitorID,
		VisitID:   s.visitID,
		IssuedAt:  s.now,
		Status:    models.StatusActive,
	})
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *CredentialPostgresSuite) TestEmployeeCredentialStoresNoVisit() {
	c, err := s.store.Insert(s.ctx, models.Credential{
		Code:      "EMP_5_ccdd44556677",
		Kind:      models.KindEmployee,
		SubjectID: 5,
		IssuedAt:  s.now,
		Status:    models.StatusActive,
	})
	s.Require().NoError(err)

	found, err := s.store.Lookup(s.ctx, "EMP_5_ccdd44556677")
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
	s.Zero(found.VisitID)
	s.Nil(found.ExpiresAt)
}

func (s *CredentialPostgresSuite) TestTrimmedLookupAndRewrite() {
	c := s.insert(" VIS_77_aabb00112233 ", nil)

	_, err := s.store.Lookup(s.ctx, "VIS_77_aabb00112233")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.LookupTrimmed(s.ctx, "VIS_77_aabb00112233")
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)

	s.Require().NoError(s.store.Rewrite(s.ctx, c.ID, "VIS_77_aabb00112233"))
	found, err = s.store.Lookup(s.ctx, "VIS_77_aabb00112233")
	s.Require().NoError(err)
	s.Equal(c.ID, found.ID)
}

func (s *CredentialPostgresSuite) TestActiveForVisitPrefersNewestActive() {
	older := s.insert("VIS_77_000000000001", nil)
	s.Require().NoError(s.store.MarkRevoked(s.ctx, older.ID))

	_, err := s.store.Insert(s.ctx, models.Credential{
		Code:      "VIS_77_000000000002",
		Kind:      models.KindVisitor,
		SubjectID: s.visitorID,
		VisitID:   s.visitID,
		IssuedAt:  s.now.Add(time.Minute),
		Status:    models.StatusActive,
	})
	s.Require().NoError(err)

	active, err := s.store.ActiveForVisit(s.ctx, s.visitID)
	s.Require().NoError(err)
	s.Equal("VIS_77_000000000002", active.Code)
}

func (s *CredentialPostgresSuite) TestStatusMovesAreTerminal() {
	c := s.insert("VIS_77_aabb00112233", nil)

	s.Require().NoError(s.store.MarkRevoked(s.ctx, c.ID))

	s.Run("double revoke", func() {
		s.Require().ErrorIs(s.store.MarkRevoked(s.ctx, c.ID), sentinel.ErrInvalidState)
	})
	s.Run("expiring a revoked credential", func() {
		s.Require().ErrorIs(s.store.MarkExpired(s.ctx, c.ID), sentinel.ErrInvalidState)
	})

	found, err := s.store.LookupByID(s.ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
}
