package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/credential/models"
	credstore "gatepass/internal/credential/store"
	"gatepass/internal/directory"
	visitmodels "gatepass/internal/visit/models"
	visitstore "gatepass/internal/visit/store"
	"gatepass/pkg/sentinel"
)

// fakeRenderer records image operations without touching the filesystem.
type fakeRenderer struct {
	rendered []string
	removed  []string
}

func (f *fakeRenderer) Render(code string) (string, error) {
	f.rendered = append(f.rendered, code)
	return "img/" + code + ".png", nil
}

func (f *fakeRenderer) Remove(code string) error {
	f.removed = append(f.removed, code)
	return nil
}

func (f *fakeRenderer) Path(code string) string { return "img/" + code + ".png" }

// conflictingStore forces uniqueness conflicts on the first n inserts.
type conflictingStore struct {
	*credstore.MemoryStore
	conflicts int
}

func (c *conflictingStore) Insert(ctx context.Context, cred models.Credential) (models.Credential, error) {
	if c.conflicts > 0 {
		c.conflicts--
		return models.Credential{}, sentinel.ErrConflict
	}
	return c.MemoryStore.Insert(ctx, cred)
}

type IssuerSuite struct {
	suite.Suite
	ctx      context.Context
	store    *credstore.MemoryStore
	dir      *directory.MemoryStore
	visits   *visitstore.MemoryStore
	renderer *fakeRenderer
	issuer   *Issuer
	now      time.Time
}

func TestIssuerSuite(t *testing.T) {
	suite.Run(t, new(IssuerSuite))
}

func (s *IssuerSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = credstore.NewMemory()
	s.dir = directory.NewMemory()
	s.visits = visitstore.NewMemory()
	s.renderer = &fakeRenderer{}
	s.now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

	var err error
	s.issuer, err = NewIssuer(s.store, s.dir, s.visits, s.renderer,
		WithIssuerClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
}

func (s *IssuerSuite) newPendingVisit() visitmodels.Visit {
	vis, err := s.dir.CreateVisitor(s.ctx, directory.Visitor{FullName: "Ana Costa"})
	s.Require().NoError(err)
	visit, err := s.visits.Create(s.ctx, visitmodels.Visit{
		VisitorID: vis.ID,
		SiteID:    1,
		Status:    visitmodels.StatusPending,
	})
	s.Require().NoError(err)
	return visit
}

func (s *IssuerSuite) TestIssueEmployee() {
	emp, err := s.dir.CreateEmployee(s.ctx, directory.Employee{Name: "Priya Nair", HourlyRate: 20})
	s.Require().NoError(err)

	res, err := s.issuer.IssueEmployee(s.ctx, emp.ID)
	s.Require().NoError(err)
	s.Equal(models.KindEmployee, res.Credential.Kind)
	s.Equal(models.StatusActive, res.Credential.Status)
	s.Nil(res.Credential.ExpiresAt, "employee credentials never expire")
	s.True(strings.HasPrefix(res.Credential.Code, models.EmployeePrefix))
	s.Len(s.renderer.rendered, 1)
	s.Equal("img/"+res.Credential.Code+".png", res.ImagePath)
}

func (s *IssuerSuite) TestIssueEmployeeUnknownID() {
	_, err := s.issuer.IssueEmployee(s.ctx, 404)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *IssuerSuite) TestIssueVisitor() {
	visit := s.newPendingVisit()

	res, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)
	s.Equal(models.KindVisitor, res.Credential.Kind)
	s.Equal(visit.ID, res.Credential.VisitID)
	s.Require().NotNil(res.Credential.ExpiresAt)
	s.Equal(s.now.Add(24*time.Hour), *res.Credential.ExpiresAt)
	s.True(strings.HasPrefix(res.Credential.Code, models.VisitorPrefix))
	s.False(res.Reused)
}

func (s *IssuerSuite) TestIssueVisitorReusesActiveCredential() {
	visit := s.newPendingVisit()

	first, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)

	again, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)
	s.True(again.Reused)
	s.Equal(first.Credential.ID, again.Credential.ID)
	s.Len(s.renderer.rendered, 1, "no second image for a reused credential")
}

func (s *IssuerSuite) TestIssueVisitorSupersedesStaleCredential() {
	visit := s.newPendingVisit()

	first, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)

	// The window passes without any scan forcing the automatic expiry.
	s.now = s.now.Add(25 * time.Hour)

	second, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)
	s.False(second.Reused)
	s.NotEqual(first.Credential.ID, second.Credential.ID)

	old, err := s.store.LookupByID(s.ctx, first.Credential.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExpired, old.Status)
}

func (s *IssuerSuite) TestIssueVisitorRejectsTerminalVisit() {
	visit := s.newPendingVisit()
	_, err := s.visits.Transition(s.ctx, visit.ID, visitmodels.StatusPending, visitmodels.StatusDenied, s.now)
	s.Require().NoError(err)

	_, err = s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *IssuerSuite) TestMintRetriesOnCodeCollision() {
	emp, err := s.dir.CreateEmployee(s.ctx, directory.Employee{Name: "Wei Zhang"})
	s.Require().NoError(err)

	store := &conflictingStore{MemoryStore: s.store, conflicts: 2}
	issuer, err := NewIssuer(store, s.dir, s.visits, s.renderer,
		WithIssuerClock(func() time.Time { return s.now }))
	s.Require().NoError(err)

	res, err := issuer.IssueEmployee(s.ctx, emp.ID)
	s.Require().NoError(err)
	s.Len(s.renderer.rendered, 3, "one render per attempt")
	s.Len(s.renderer.removed, 2, "conflicting images cleaned up")
	s.NotContains(s.renderer.removed, res.Credential.Code)
}

func (s *IssuerSuite) TestMintGivesUpAfterRepeatedCollisions() {
	emp, err := s.dir.CreateEmployee(s.ctx, directory.Employee{Name: "Ivo Petrov"})
	s.Require().NoError(err)

	store := &conflictingStore{MemoryStore: s.store, conflicts: 10}
	issuer, err := NewIssuer(store, s.dir, s.visits, s.renderer,
		WithIssuerClock(func() time.Time { return s.now }))
	s.Require().NoError(err)

	_, err = issuer.IssueEmployee(s.ctx, emp.ID)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *IssuerSuite) TestRevoke() {
	visit := s.newPendingVisit()
	res, err := s.issuer.IssueVisitor(s.ctx, visit.ID, "")
	s.Require().NoError(err)

	s.Require().NoError(s.issuer.Revoke(s.ctx, res.Credential.ID))

	stored, err := s.store.LookupByID(s.ctx, res.Credential.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, stored.Status)

	s.Run("revoking twice is an invalid state", func() {
		s.Require().ErrorIs(s.issuer.Revoke(s.ctx, res.Credential.ID), sentinel.ErrInvalidState)
	})
}
