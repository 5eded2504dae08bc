package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/visit/models"
	"gatepass/pkg/sentinel"
)

type VisitStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
}

func TestVisitStoreSuite(t *testing.T) {
	suite.Run(t, new(VisitStoreSuite))
}

func (s *VisitStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemory()
}

func (s *VisitStoreSuite) pending() models.Visit {
	v, err := s.store.Create(s.ctx, models.Visit{VisitorID: 1, SiteID: 1, Status: models.StatusPending})
	s.Require().NoError(err)
	return v
}

func (s *VisitStoreSuite) TestTransitionGuards() {
	now := time.Now().UTC()

	s.Run("absent visit is not found", func() {
		_, err := s.store.Transition(s.ctx, 999, models.StatusPending, models.StatusCheckedIn, now)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("stale expected status is a conflict", func() {
		v := s.pending()
		_, err := s.store.Transition(s.ctx, v.ID, models.StatusPending, models.StatusCheckedIn, now)
		s.Require().NoError(err)

		_, err = s.store.Transition(s.ctx, v.ID, models.StatusPending, models.StatusDenied, now)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

func (s *VisitStoreSuite) TestTimestampsSetOnce() {
	v := s.pending()
	t0 := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	in, err := s.store.Transition(s.ctx, v.ID, models.StatusPending, models.StatusCheckedIn, t0)
	s.Require().NoError(err)
	s.Require().NotNil(in.CheckinTime)
	s.Equal(t0, *in.CheckinTime)

	out, err := s.store.Transition(s.ctx, v.ID, models.StatusCheckedIn, models.StatusCheckedOut, t0.Add(2*time.Hour))
	s.Require().NoError(err)
	s.Require().NotNil(out.CheckinTime)
	s.Equal(t0, *out.CheckinTime, "checkin time unchanged by later transitions")
	s.Require().NotNil(out.CheckoutTime)
	s.Equal(t0.Add(2*time.Hour), *out.CheckoutTime)
}

func (s *VisitStoreSuite) TestConcurrentTransitionExactlyOneWins() {
	v := s.pending()
	now := time.Now().UTC()

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Transition(s.ctx, v.ID, models.StatusPending, models.StatusCheckedIn, now)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrConflict)
		}
	}
	s.Equal(1, wins, "exactly one racer moves the visit")
}

func (s *VisitStoreSuite) TestListActive() {
	a := s.pending()
	b := s.pending()
	c := s.pending()
	now := time.Now().UTC()

	_, err := s.store.Transition(s.ctx, b.ID, models.StatusPending, models.StatusCheckedIn, now)
	s.Require().NoError(err)
	_, err = s.store.Transition(s.ctx, c.ID, models.StatusPending, models.StatusDenied, now)
	s.Require().NoError(err)

	active, err := s.store.ListActive(s.ctx)
	s.Require().NoError(err)
	ids := make([]int64, 0, len(active))
	for _, v := range active {
		ids = append(ids, v.ID)
	}
	s.ElementsMatch([]int64{a.ID, b.ID}, ids, "denied visits are not active")
}
