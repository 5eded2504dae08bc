// Package service implements the employee attendance processor: the
// signin/signout toggle, late-arrival accounting against a fixed cutoff, and
// derived earnings estimates.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gatepass/internal/attendance/models"
	"gatepass/internal/attendance/store"
	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/directory"
	"gatepass/pkg/sentinel"
)

// CredentialReader resolves scanned credentials without coupling to the
// credential store implementation.
type CredentialReader interface {
	LookupByID(ctx context.Context, id int64) (credmodels.Credential, error)
}

// DirectoryReader resolves employee records for names and pay rates.
type DirectoryReader interface {
	FindEmployee(ctx context.Context, id int64) (directory.Employee, error)
}

// Service coordinates toggle decisions and window aggregations. Rejections are
// returned as typed results; errors mean storage trouble only.
type Service struct {
	events      store.Store
	credentials CredentialReader
	dir         DirectoryReader

	cutoff     time.Duration
	cutoffZone *time.Location
	threshold  int
	windowDays int

	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLatePolicy replaces the default cutoff and alert policy. Cutoff is a
// local "HH:MM" wall-clock string.
func WithLatePolicy(cutoff string, threshold, windowDays int) Option {
	return func(s *Service) {
		if d, err := parseCutoff(cutoff); err == nil {
			s.cutoff = d
		}
		if threshold > 0 {
			s.threshold = threshold
		}
		if windowDays > 0 {
			s.windowDays = windowDays
		}
	}
}

// WithCutoffZone sets the zone the cutoff wall-clock is read in. The default
// is the process-local zone.
func WithCutoffZone(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.cutoffZone = loc
		}
	}
}

func New(events store.Store, credentials CredentialReader, dir DirectoryReader, opts ...Option) (*Service, error) {
	if events == nil {
		return nil, errors.New("attendance: event store is required")
	}
	if credentials == nil {
		return nil, errors.New("attendance: credential reader is required")
	}
	if dir == nil {
		return nil, errors.New("attendance: directory reader is required")
	}
	s := &Service{
		events:       events,
		credentials:  credentials,
		dir:          dir,
		cutoff:     9*time.Hour + 10*time.Minute,
		cutoffZone: time.Local,
		threshold:  3,
		windowDays: 30,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Toggle records a signin or signout for the employee behind credentialID.
// The direction must alternate; a same-direction repeat is rejected, and under
// concurrent identical scans exactly one caller gets the accepted result.
func (s *Service) Toggle(ctx context.Context, credentialID int64, direction models.Direction) (models.ToggleResult, error) {
	if !direction.Known() {
		return reject(models.RejectBadDirection, fmt.Sprintf("unknown direction %q", direction)), nil
	}

	cred, err := s.credentials.LookupByID(ctx, credentialID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return reject(models.RejectCredentialNotFound, "credential not found"), nil
	}
	if err != nil {
		return models.ToggleResult{}, fmt.Errorf("resolve credential %d: %w", credentialID, err)
	}
	if cred.Kind != credmodels.KindEmployee {
		return reject(models.RejectNotEmployee, "credential is not an employee credential"), nil
	}
	now := s.now().UTC()
	if cred.ExpiredAt(now) {
		return reject(models.RejectCredentialExpired, "credential has expired"), nil
	}
	if cred.Status != credmodels.StatusActive {
		return reject(models.RejectCredentialInactive, "credential is not active"), nil
	}

	ev, err := s.events.Append(ctx, models.Event{
		CredentialID: cred.ID,
		EmployeeID:   cred.SubjectID,
		Direction:    direction,
		Timestamp:    now,
	})
	if errors.Is(err, sentinel.ErrConflict) {
		if direction == models.DirectionSignin {
			return reject(models.RejectAlreadySignedIn, "employee is already signed in"), nil
		}
		return reject(models.RejectNotSignedIn, "employee is not signed in"), nil
	}
	if err != nil {
		return models.ToggleResult{}, fmt.Errorf("append %s for credential %d: %w", direction, credentialID, err)
	}

	res := models.ToggleResult{
		Accepted:   true,
		Message:    fmt.Sprintf("%s recorded", direction),
		Event:      &ev,
		EmployeeID: cred.SubjectID,
	}
	if emp, derr := s.dir.FindEmployee(ctx, cred.SubjectID); derr == nil {
		res.EmployeeName = emp.Name
	} else if !errors.Is(derr, sentinel.ErrNotFound) {
		return models.ToggleResult{}, fmt.Errorf("resolve employee %d: %w", cred.SubjectID, derr)
	}

	if direction == models.DirectionSignin && s.isLate(ev.Timestamp) {
		res.Late = true
		report, lerr := s.LateCount(ctx, cred.SubjectID, s.windowDays)
		if lerr != nil {
			return models.ToggleResult{}, lerr
		}
		res.LateCount = report.Count
		res.ThresholdReached = report.ThresholdReached
		res.ThresholdCrossed = report.Count == s.threshold
		s.logger.Info("late signin recorded",
			"employee_id", cred.SubjectID,
			"late_count", report.Count,
			"threshold_reached", report.ThresholdReached)
	}
	return res, nil
}

// LateCount counts late signins for an employee over the trailing window.
// A zero windowDays uses the configured default.
func (s *Service) LateCount(ctx context.Context, employeeID int64, windowDays int) (models.LateReport, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	now := s.now().UTC()
	from := now.AddDate(0, 0, -windowDays)

	events, err := s.events.ListByEmployee(ctx, employeeID, from, now.Add(time.Second))
	if err != nil {
		return models.LateReport{}, fmt.Errorf("list events for employee %d: %w", employeeID, err)
	}

	count := 0
	for _, e := range events {
		if e.Direction == models.DirectionSignin && s.isLate(e.Timestamp) {
			count++
		}
	}
	return models.LateReport{
		EmployeeID:       employeeID,
		WindowDays:       windowDays,
		Count:            count,
		ThresholdReached: count >= s.threshold,
	}, nil
}

// EstimateEarnings projects pay over the trailing window by pairing each
// signin with the next signout. A trailing signin with no signout contributes
// hours up to the end of its calendar day, capped at now, and is flagged
// incomplete. Pairs whose signout precedes the signin contribute zero.
func (s *Service) EstimateEarnings(ctx context.Context, employeeID int64, windowDays int) (models.EarningsEstimate, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	emp, err := s.dir.FindEmployee(ctx, employeeID)
	if err != nil {
		return models.EarningsEstimate{}, fmt.Errorf("resolve employee %d: %w", employeeID, err)
	}

	now := s.now().UTC()
	from := now.AddDate(0, 0, -windowDays)
	events, err := s.events.ListByEmployee(ctx, employeeID, from, now.Add(time.Second))
	if err != nil {
		return models.EarningsEstimate{}, fmt.Errorf("list events for employee %d: %w", employeeID, err)
	}

	est := models.EarningsEstimate{
		EmployeeID: employeeID,
		WindowDays: windowDays,
		HourlyRate: emp.HourlyRate,
	}
	var open *time.Time
	for _, e := range events {
		switch e.Direction {
		case models.DirectionSignin:
			t := e.Timestamp
			open = &t
		case models.DirectionSignout:
			if open == nil {
				continue
			}
			hours := e.Timestamp.Sub(*open).Hours()
			if hours < 0 {
				hours = 0
			}
			est.Segments = append(est.Segments, models.WorkSegment{
				Start: *open,
				End:   e.Timestamp,
				Hours: hours,
			})
			open = nil
		}
	}
	if open != nil {
		end := endOfDay(*open)
		if end.After(now) {
			end = now
		}
		hours := end.Sub(*open).Hours()
		if hours < 0 {
			hours = 0
		}
		est.Segments = append(est.Segments, models.WorkSegment{
			Start:      *open,
			End:        end,
			Hours:      hours,
			Incomplete: true,
		})
	}
	for _, seg := range est.Segments {
		est.TotalHours += seg.Hours
	}
	est.Pay = est.TotalHours * emp.HourlyRate
	return est, nil
}

// isLate reports whether t's wall-clock time in the cutoff zone is strictly
// after the cutoff. Seconds count: a 09:10:30 signin is late for a 09:10
// cutoff.
func (s *Service) isLate(t time.Time) bool {
	lt := t.In(s.cutoffZone)
	sinceMidnight := time.Duration(lt.Hour())*time.Hour +
		time.Duration(lt.Minute())*time.Minute +
		time.Duration(lt.Second())*time.Second +
		time.Duration(lt.Nanosecond())
	return sinceMidnight > s.cutoff
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

func parseCutoff(v string) (time.Duration, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("cutoff %q is not HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("cutoff %q has a bad hour", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("cutoff %q has a bad minute", v)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func reject(reason models.RejectReason, msg string) models.ToggleResult {
	return models.ToggleResult{Reason: reason, Message: msg}
}
