//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/attendance/models"
	credmodels "gatepass/internal/credential/models"
	credstore "gatepass/internal/credential/store"
	"gatepass/internal/directory"
	"gatepass/pkg/sentinel"
	"gatepass/pkg/testutil/containers"
)

type AttendancePostgresSuite struct {
	suite.Suite
	ctx        context.Context
	pg         *containers.PostgresContainer
	store      *PostgresStore
	employeeID int64
	credID     int64
	now        time.Time
}

func TestAttendancePostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(AttendancePostgresSuite))
}

func (s *AttendancePostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T(), "../../../migrations/schema.sql")
	s.store = NewPostgres(s.pg.DB)
	s.now = time.Now().UTC().Truncate(time.Microsecond)

	emp, err := directory.NewPostgres(s.pg.DB).CreateEmployee(s.ctx, directory.Employee{
		Name: "Yara Halim", HourlyRate: 18,
	})
	s.Require().NoError(err)
	s.employeeID = emp.ID

	cred, err := credstore.NewPostgres(s.pg.DB).Insert(s.ctx, credmodels.Credential{
		Code:      "EMP_1_a1b2c3d4e5f6",
		Kind:      credmodels.KindEmployee,
		SubjectID: emp.ID,
		IssuedAt:  s.now,
		Status:    credmodels.StatusActive,
	})
	s.Require().NoError(err)
	s.credID = cred.ID
}

func (s *AttendancePostgresSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "attendance_events"))
}

func (s *AttendancePostgresSuite) append(direction models.Direction, at time.Time) (models.Event, error) {
	return s.store.Append(s.ctx, models.Event{
		CredentialID: s.credID,
		EmployeeID:   s.employeeID,
		Direction:    direction,
		Timestamp:    at,
	})
}

func (s *AttendancePostgresSuite) TestAppendAlternationGuard() {
	first, err := s.append(models.DirectionSignin, s.now)
	s.Require().NoError(err)
	s.NotZero(first.ID)

	_, err = s.append(models.DirectionSignin, s.now.Add(time.Minute))
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	_, err = s.append(models.DirectionSignout, s.now.Add(time.Hour))
	s.Require().NoError(err)

	_, err = s.append(models.DirectionSignout, s.now.Add(2*time.Hour))
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *AttendancePostgresSuite) TestSignoutWithoutSigninIsConflict() {
	_, err := s.append(models.DirectionSignout, s.now)
	s.Require().ErrorIs(err, sentinel.ErrConflict)
}

func (s *AttendancePostgresSuite) TestLatestFollowsAppendOrder() {
	_, err := s.append(models.DirectionSignin, s.now)
	s.Require().NoError(err)
	// Later append with an earlier clock reading still wins Latest.
	out, err := s.append(models.DirectionSignout, s.now.Add(-time.Minute))
	s.Require().NoError(err)

	latest, err := s.store.Latest(s.ctx, s.credID)
	s.Require().NoError(err)
	s.Equal(out.ID, latest.ID)
	s.Equal(models.DirectionSignout, latest.Direction)
}

func (s *AttendancePostgresSuite) TestLatestUnknownCredential() {
	_, err := s.store.Latest(s.ctx, 999999)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *AttendancePostgresSuite) TestListByEmployeeWindow() {
	_, err := s.append(models.DirectionSignin, s.now)
	s.Require().NoError(err)
	_, err = s.append(models.DirectionSignout, s.now.Add(time.Hour))
	s.Require().NoError(err)
	_, err = s.append(models.DirectionSignin, s.now.Add(2*time.Hour))
	s.Require().NoError(err)

	events, err := s.store.ListByEmployee(s.ctx, s.employeeID, s.now, s.now.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(events, 2, "window excludes the upper bound")
	s.Equal(models.DirectionSignin, events[0].Direction)
	s.Equal(models.DirectionSignout, events[1].Direction)
}

func (s *AttendancePostgresSuite) TestConcurrentSigninSingleWinner() {
	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.append(models.DirectionSignin, s.now); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	s.Len(wins, 1)
}
