package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/directory"
	"gatepass/internal/jwtauth"
	"gatepass/pkg/audit"
	auditmemory "gatepass/pkg/audit/store/memory"
	"gatepass/pkg/sentinel"
)

type OperatorSuite struct {
	suite.Suite
	ctx      context.Context
	dir      *directory.MemoryStore
	tokens   *jwtauth.Service
	auditLog *auditmemory.Store
	service  *Service
}

func TestOperatorSuite(t *testing.T) {
	suite.Run(t, new(OperatorSuite))
}

func (s *OperatorSuite) SetupTest() {
	s.ctx = context.Background()
	s.dir = directory.NewMemory()
	s.tokens = jwtauth.New("test-signing-key", time.Hour)
	s.auditLog = auditmemory.New()

	var err error
	s.service, err = New(s.dir, s.tokens, WithAudit(s.auditLog))
	s.Require().NoError(err)

	_, err = s.service.Register(s.ctx, "guard.one", "correct horse", "operator")
	s.Require().NoError(err)
}

func (s *OperatorSuite) TestLogin() {
	res, err := s.service.Login(s.ctx, "guard.one", "correct horse")
	s.Require().NoError(err)
	s.Equal("guard.one", res.Username)
	s.Equal("operator", res.Role)

	claims, err := s.tokens.ValidateToken(res.Token)
	s.Require().NoError(err)
	s.Equal("guard.one", claims.Username)
	s.Equal("operator", claims.Role)

	events, err := s.auditLog.List(s.ctx, audit.Filter{Action: audit.ActionOperatorLogin})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("guard.one", events[0].Actor)
}

func (s *OperatorSuite) TestLoginTrimsUsername() {
	_, err := s.service.Login(s.ctx, "  guard.one  ", "correct horse")
	s.Require().NoError(err)
}

func (s *OperatorSuite) TestLoginFailuresAreIndistinguishable() {
	_, unknownErr := s.service.Login(s.ctx, "nobody", "correct horse")
	_, wrongErr := s.service.Login(s.ctx, "guard.one", "wrong password")

	s.Require().ErrorIs(unknownErr, sentinel.ErrNotFound)
	s.Require().ErrorIs(wrongErr, sentinel.ErrNotFound)
	s.Equal(unknownErr.Error(), wrongErr.Error())
}

func (s *OperatorSuite) TestLoginRejectsEmptyInput() {
	_, err := s.service.Login(s.ctx, "", "x")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
	_, err = s.service.Login(s.ctx, "guard.one", "")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *OperatorSuite) TestRegisterRejectsShortPassword() {
	_, err := s.service.Register(s.ctx, "guard.two", "short", "operator")
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}

func (s *OperatorSuite) TestRegisterDoesNotStorePlaintext() {
	op, err := s.service.Register(s.ctx, "guard.two", "another password", "admin")
	s.Require().NoError(err)
	s.NotEqual("another password", op.PasswordHash)
	s.NotEmpty(op.PasswordHash)
}
