package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	attmodels "gatepass/internal/attendance/models"
	attstore "gatepass/internal/attendance/store"
	credmodels "gatepass/internal/credential/models"
	credstore "gatepass/internal/credential/store"
	"gatepass/internal/directory"
)

type AttendanceServiceSuite struct {
	suite.Suite
	ctx      context.Context
	events   *attstore.MemoryStore
	creds    *credstore.MemoryStore
	dir      *directory.MemoryStore
	service  *Service
	now      time.Time
	employee directory.Employee
	cred     credmodels.Credential
}

func TestAttendanceServiceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceServiceSuite))
}

func (s *AttendanceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = attstore.NewMemory()
	s.creds = credstore.NewMemory()
	s.dir = directory.NewMemory()
	// A Monday, 08:30 local.
	s.now = time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)

	var err error
	s.employee, err = s.dir.CreateEmployee(s.ctx, directory.Employee{Name: "Maya Okafor", HourlyRate: 25})
	s.Require().NoError(err)
	s.cred, err = s.creds.Insert(s.ctx, credmodels.Credential{
		Code:      "EMP_1_a1b2c3d4e5f6",
		Kind:      credmodels.KindEmployee,
		SubjectID: s.employee.ID,
		IssuedAt:  s.now.AddDate(0, -1, 0),
		Status:    credmodels.StatusActive,
	})
	s.Require().NoError(err)

	s.service, err = New(s.events, s.creds, s.dir,
		WithClock(func() time.Time { return s.now }),
		WithLatePolicy("09:10", 3, 30),
		WithCutoffZone(time.UTC),
	)
	s.Require().NoError(err)
}

func (s *AttendanceServiceSuite) toggle(direction attmodels.Direction) attmodels.ToggleResult {
	res, err := s.service.Toggle(s.ctx, s.cred.ID, direction)
	s.Require().NoError(err)
	return res
}

func (s *AttendanceServiceSuite) TestToggleAlternation() {
	s.Run("signout before any signin is rejected", func() {
		res := s.toggle(attmodels.DirectionSignout)
		s.False(res.Accepted)
		s.Equal(attmodels.RejectNotSignedIn, res.Reason)
	})

	s.Run("first signin is accepted", func() {
		res := s.toggle(attmodels.DirectionSignin)
		s.True(res.Accepted)
		s.Equal(s.employee.ID, res.EmployeeID)
		s.Equal("Maya Okafor", res.EmployeeName)
		s.False(res.Late, "08:30 is before the cutoff")
	})

	s.Run("second signin is rejected", func() {
		res := s.toggle(attmodels.DirectionSignin)
		s.False(res.Accepted)
		s.Equal(attmodels.RejectAlreadySignedIn, res.Reason)
	})

	s.Run("signout closes the day", func() {
		s.now = s.now.Add(8 * time.Hour)
		res := s.toggle(attmodels.DirectionSignout)
		s.True(res.Accepted)
		s.False(res.Late, "signouts are never classified late")
	})
}

func (s *AttendanceServiceSuite) TestToggleCredentialGuards() {
	s.Run("unknown credential", func() {
		res, err := s.service.Toggle(s.ctx, 999, attmodels.DirectionSignin)
		s.Require().NoError(err)
		s.False(res.Accepted)
		s.Equal(attmodels.RejectCredentialNotFound, res.Reason)
	})

	s.Run("visitor credential", func() {
		visitorCred, err := s.creds.Insert(s.ctx, credmodels.Credential{
			Code: "VIS_5_ffeeddccbbaa", Kind: credmodels.KindVisitor, SubjectID: 5, VisitID: 5,
			IssuedAt: s.now, Status: credmodels.StatusActive,
		})
		s.Require().NoError(err)
		res, err := s.service.Toggle(s.ctx, visitorCred.ID, attmodels.DirectionSignin)
		s.Require().NoError(err)
		s.Equal(attmodels.RejectNotEmployee, res.Reason)
	})

	s.Run("revoked credential", func() {
		s.Require().NoError(s.creds.MarkRevoked(s.ctx, s.cred.ID))
		res, err := s.service.Toggle(s.ctx, s.cred.ID, attmodels.DirectionSignin)
		s.Require().NoError(err)
		s.Equal(attmodels.RejectCredentialInactive, res.Reason)
	})

	s.Run("bad direction", func() {
		res, err := s.service.Toggle(s.ctx, s.cred.ID, "sideways")
		s.Require().NoError(err)
		s.Equal(attmodels.RejectBadDirection, res.Reason)
	})
}

func (s *AttendanceServiceSuite) TestLateClassification() {
	// 09:15 is strictly after the 09:10 cutoff.
	s.now = time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	res := s.toggle(attmodels.DirectionSignin)
	s.True(res.Accepted)
	s.True(res.Late)
	s.Equal(1, res.LateCount)
	s.False(res.ThresholdReached)

	s.Run("exactly at the cutoff is not late", func() {
		s.now = time.Date(2025, 6, 3, 9, 10, 0, 0, time.UTC)
		_ = s.toggle(attmodels.DirectionSignout)
		s.now = time.Date(2025, 6, 4, 9, 10, 0, 0, time.UTC)
		res := s.toggle(attmodels.DirectionSignin)
		s.True(res.Accepted)
		s.False(res.Late)
	})

	s.Run("thirty seconds past the cutoff is late", func() {
		s.now = time.Date(2025, 6, 4, 17, 0, 0, 0, time.UTC)
		_ = s.toggle(attmodels.DirectionSignout)
		s.now = time.Date(2025, 6, 5, 9, 10, 30, 0, time.UTC)
		res := s.toggle(attmodels.DirectionSignin)
		s.True(res.Accepted)
		s.True(res.Late, "09:10:30 is strictly after 09:10")
	})
}

func (s *AttendanceServiceSuite) TestCutoffReadsFacilityWallClock() {
	// 08:30 UTC is 10:30 in UTC+2; the facility zone decides, not UTC.
	facility := time.FixedZone("UTC+2", 2*60*60)
	svc, err := New(s.events, s.creds, s.dir,
		WithClock(func() time.Time { return s.now }),
		WithLatePolicy("09:10", 3, 30),
		WithCutoffZone(facility),
	)
	s.Require().NoError(err)

	s.now = time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC)
	res, err := svc.Toggle(s.ctx, s.cred.ID, attmodels.DirectionSignin)
	s.Require().NoError(err)
	s.Require().True(res.Accepted)
	s.True(res.Late, "10:30 facility time is past the cutoff")
}

func (s *AttendanceServiceSuite) TestLateThreshold() {
	// Three late signins inside a rolling 30-day window.
	days := []time.Time{
		time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC),
		time.Date(2025, 6, 9, 9, 30, 0, 0, time.UTC),
		time.Date(2025, 6, 16, 10, 0, 0, 0, time.UTC),
	}
	for i, day := range days {
		s.now = day
		res := s.toggle(attmodels.DirectionSignin)
		s.Require().True(res.Accepted)
		s.Require().True(res.Late)
		s.Equal(i+1, res.LateCount)

		s.now = day.Add(8 * time.Hour)
		_ = s.toggle(attmodels.DirectionSignout)
	}

	report, err := s.service.LateCount(s.ctx, s.employee.ID, 30)
	s.Require().NoError(err)
	s.Equal(3, report.Count)
	s.True(report.ThresholdReached)

	s.Run("crossing fires exactly once", func() {
		// The third late signin crossed; a fourth reaches but does not cross.
		s.now = time.Date(2025, 6, 17, 9, 20, 0, 0, time.UTC)
		res := s.toggle(attmodels.DirectionSignin)
		s.True(res.ThresholdReached)
		s.False(res.ThresholdCrossed)
	})

	s.Run("old events age out of the window", func() {
		s.now = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
		report, err := s.service.LateCount(s.ctx, s.employee.ID, 30)
		s.Require().NoError(err)
		s.Equal(0, report.Count)
		s.False(report.ThresholdReached)
	})
}

func (s *AttendanceServiceSuite) TestThresholdCrossedOnThirdLate() {
	for i, day := range []time.Time{
		time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 9, 15, 0, 0, time.UTC),
		time.Date(2025, 6, 4, 9, 15, 0, 0, time.UTC),
	} {
		s.now = day
		res := s.toggle(attmodels.DirectionSignin)
		s.Require().True(res.Accepted)
		s.Equal(i == 2, res.ThresholdCrossed, "only the third late signin crosses")

		s.now = day.Add(8 * time.Hour)
		_ = s.toggle(attmodels.DirectionSignout)
	}
}

func (s *AttendanceServiceSuite) TestConcurrentSigninExactlyOneAccepted() {
	const racers = 12
	var wg sync.WaitGroup
	results := make(chan attmodels.ToggleResult, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.service.Toggle(s.ctx, s.cred.ID, attmodels.DirectionSignin)
			s.NoError(err)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	for res := range results {
		if res.Accepted {
			accepted++
		} else {
			s.Equal(attmodels.RejectAlreadySignedIn, res.Reason)
		}
	}
	s.Equal(1, accepted)
}

func (s *AttendanceServiceSuite) TestEstimateEarnings() {
	// Monday 09:00-17:00 complete, Tuesday 09:00 signin with no signout.
	monday := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)

	s.now = monday
	s.Require().True(s.toggle(attmodels.DirectionSignin).Accepted)
	s.now = monday.Add(8 * time.Hour)
	s.Require().True(s.toggle(attmodels.DirectionSignout).Accepted)
	s.now = tuesday
	s.Require().True(s.toggle(attmodels.DirectionSignin).Accepted)

	// Asking at 13:00 Tuesday: the open day counts up to now, never beyond.
	s.now = tuesday.Add(4 * time.Hour)
	est, err := s.service.EstimateEarnings(s.ctx, s.employee.ID, 30)
	s.Require().NoError(err)

	s.Require().Len(est.Segments, 2)
	s.InDelta(8.0, est.Segments[0].Hours, 1e-9)
	s.False(est.Segments[0].Incomplete)
	s.InDelta(4.0, est.Segments[1].Hours, 1e-9)
	s.True(est.Segments[1].Incomplete, "open Tuesday entry is flagged incomplete")

	s.InDelta(12.0, est.TotalHours, 1e-9)
	s.InDelta(12.0*25, est.Pay, 1e-9)
}

func (s *AttendanceServiceSuite) TestEarningsOpenDayCapsAtMidnight() {
	monday := time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC)
	s.now = monday
	s.Require().True(s.toggle(attmodels.DirectionSignin).Accepted)

	// Asking two days later: the open entry stops at end of its calendar day.
	s.now = monday.AddDate(0, 0, 2)
	est, err := s.service.EstimateEarnings(s.ctx, s.employee.ID, 30)
	s.Require().NoError(err)
	s.Require().Len(est.Segments, 1)
	s.InDelta(4.0, est.Segments[0].Hours, 1e-9, "20:00 to midnight")
	s.True(est.Segments[0].Incomplete)
}

func (s *AttendanceServiceSuite) TestEarningsNonMonotonicPairContributesZero() {
	// Clock rollback between signin and signout. The guard cannot see wall
	// clocks, so the pair lands with out before in; it must contribute zero.
	t0 := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	_, err := s.events.Append(s.ctx, attmodels.Event{
		CredentialID: s.cred.ID, EmployeeID: s.employee.ID,
		Direction: attmodels.DirectionSignin, Timestamp: t0,
	})
	s.Require().NoError(err)
	_, err = s.events.Append(s.ctx, attmodels.Event{
		CredentialID: s.cred.ID, EmployeeID: s.employee.ID,
		Direction: attmodels.DirectionSignout, Timestamp: t0.Add(-2 * time.Hour),
	})
	s.Require().NoError(err)

	s.now = t0.Add(24 * time.Hour)
	est, err := s.service.EstimateEarnings(s.ctx, s.employee.ID, 30)
	s.Require().NoError(err)
	s.InDelta(0.0, est.TotalHours, 1e-9, "never negative, never fabricated")
	s.InDelta(0.0, est.Pay, 1e-9)
}
