// Package service implements the scan orchestrator: the pipeline every
// inbound scan event runs through, from verification to the audit log.
//
// Stage order is fixed: verify, then the flag gate for visitor check-ins,
// then the domain transition or toggle, then audit append, then best-effort
// notification. A failed stage terminates the pipeline; the audit append is
// the commit point, and only notification runs after it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	attmodels "gatepass/internal/attendance/models"
	credmodels "gatepass/internal/credential/models"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/platform/middleware"
	"gatepass/internal/scan/models"
	flagmodels "gatepass/internal/securityflag/models"
	visitmodels "gatepass/internal/visit/models"
	"gatepass/pkg/audit"
	"gatepass/pkg/notify"
	"gatepass/pkg/sentinel"
)

type Verifier interface {
	Verify(ctx context.Context, raw string) (credmodels.Verdict, error)
}

type FlagGate interface {
	ActiveFlags(ctx context.Context, visitorID int64) ([]flagmodels.Flag, error)
}

type VisitMachine interface {
	Find(ctx context.Context, id int64) (visitmodels.Visit, error)
	Transition(ctx context.Context, visitID int64, target visitmodels.Status) (bool, error)
}

type AttendanceProcessor interface {
	Toggle(ctx context.Context, credentialID int64, direction attmodels.Direction) (attmodels.ToggleResult, error)
	EstimateEarnings(ctx context.Context, employeeID int64, windowDays int) (attmodels.EarningsEstimate, error)
}

// LatestEventReader derives the next toggle direction for kiosk scans that
// carry no explicit direction.
type LatestEventReader interface {
	Latest(ctx context.Context, credentialID int64) (attmodels.Event, error)
}

// Orchestrator wires the pipeline stages together. It is the sole writer of
// scan-produced audit events.
type Orchestrator struct {
	verifier   Verifier
	flags      FlagGate
	visits     VisitMachine
	attendance AttendanceProcessor
	attEvents  LatestEventReader

	auditLog audit.Store
	mirror   chan<- audit.Event

	notifier   notify.Notifier
	alertEmail string

	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithNotifier enables alert side effects, delivered to alertEmail.
func WithNotifier(n notify.Notifier, alertEmail string) Option {
	return func(o *Orchestrator) {
		o.notifier = n
		o.alertEmail = alertEmail
	}
}

// WithMirror forwards every committed audit event to inbox, non-blocking.
func WithMirror(inbox chan<- audit.Event) Option {
	return func(o *Orchestrator) { o.mirror = inbox }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(verifier Verifier, flags FlagGate, visits VisitMachine, attendance AttendanceProcessor, attEvents LatestEventReader, auditLog audit.Store, opts ...Option) (*Orchestrator, error) {
	if verifier == nil || flags == nil || visits == nil || attendance == nil || attEvents == nil {
		return nil, errors.New("scan: all pipeline stages are required")
	}
	if auditLog == nil {
		return nil, errors.New("scan: audit store is required")
	}
	o := &Orchestrator{
		verifier:   verifier,
		flags:      flags,
		visits:     visits,
		attendance: attendance,
		attEvents:  attEvents,
		auditLog:   auditLog,
		tracer:     otel.Tracer("gatepass/scan"),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Scan handles a kiosk scan with no declared intent: employee credentials
// toggle attendance, visitor credentials check in when the visit is pending
// and check out when it is checked in.
func (o *Orchestrator) Scan(ctx context.Context, rawCode string) (models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scan.pipeline")
	defer span.End()

	verdict, res, err := o.verify(ctx, rawCode)
	if err != nil || res != nil {
		return o.finish(ctx, span, res, err)
	}

	switch verdict.Kind {
	case credmodels.KindEmployee:
		direction := attmodels.DirectionSignin
		if last, lerr := o.attEvents.Latest(ctx, verdict.CredentialID); lerr == nil && last.Direction == attmodels.DirectionSignin {
			direction = attmodels.DirectionSignout
		} else if lerr != nil && !errors.Is(lerr, sentinel.ErrNotFound) {
			return models.Result{}, fmt.Errorf("derive toggle direction: %w", lerr)
		}
		return o.toggle(ctx, span, verdict, direction)
	case credmodels.KindVisitor:
		visit, ferr := o.visits.Find(ctx, verdict.VisitID)
		if errors.Is(ferr, sentinel.ErrNotFound) {
			r := rejected(verdict, "credential is not linked to a visit")
			return o.finish(ctx, span, &r, o.appendRejection(ctx, verdict, r.Reason))
		}
		if ferr != nil {
			return models.Result{}, fmt.Errorf("resolve visit %d: %w", verdict.VisitID, ferr)
		}
		if visit.Status == visitmodels.StatusCheckedIn {
			return o.visitTransition(ctx, span, verdict, visitmodels.StatusCheckedOut)
		}
		return o.visitTransition(ctx, span, verdict, visitmodels.StatusCheckedIn)
	default:
		r := rejected(verdict, verdict.Message)
		return o.finish(ctx, span, &r, o.appendRejection(ctx, verdict, r.Reason))
	}
}

// CheckIn admits the visitor behind rawCode, subject to the flag gate.
func (o *Orchestrator) CheckIn(ctx context.Context, rawCode string) (models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scan.checkin")
	defer span.End()

	verdict, res, err := o.verifyVisitor(ctx, rawCode)
	if err != nil || res != nil {
		return o.finish(ctx, span, res, err)
	}
	return o.visitTransition(ctx, span, verdict, visitmodels.StatusCheckedIn)
}

// CheckOut releases the visitor behind rawCode. Flags never gate exit.
func (o *Orchestrator) CheckOut(ctx context.Context, rawCode string) (models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scan.checkout")
	defer span.End()

	verdict, res, err := o.verifyVisitor(ctx, rawCode)
	if err != nil || res != nil {
		return o.finish(ctx, span, res, err)
	}
	return o.visitTransition(ctx, span, verdict, visitmodels.StatusCheckedOut)
}

// Toggle records an explicit-direction attendance scan.
func (o *Orchestrator) Toggle(ctx context.Context, credentialID int64, direction attmodels.Direction) (models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scan.toggle")
	defer span.End()

	verdict := credmodels.Verdict{
		Kind:         credmodels.KindEmployee,
		Status:       credmodels.VerdictValid,
		CredentialID: credentialID,
	}
	return o.toggle(ctx, span, verdict, direction)
}

func (o *Orchestrator) verify(ctx context.Context, rawCode string) (credmodels.Verdict, *models.Result, error) {
	ctx, span := o.tracer.Start(ctx, "scan.verify")
	defer span.End()

	verdict, err := o.verifier.Verify(ctx, rawCode)
	if err != nil {
		return credmodels.Verdict{}, nil, fmt.Errorf("verify scan: %w", err)
	}
	span.SetAttributes(
		attribute.String("credential.kind", string(verdict.Kind)),
		attribute.String("verdict", string(verdict.Status)),
	)
	if o.metrics != nil {
		o.metrics.ScanVerdicts.WithLabelValues(string(verdict.Kind), string(verdict.Status)).Inc()
	}
	if !verdict.Valid() {
		r := rejected(verdict, verdict.Message)
		return verdict, &r, o.appendRejection(ctx, verdict, r.Reason)
	}
	return verdict, nil, nil
}

func (o *Orchestrator) verifyVisitor(ctx context.Context, rawCode string) (credmodels.Verdict, *models.Result, error) {
	verdict, res, err := o.verify(ctx, rawCode)
	if err != nil || res != nil {
		return verdict, res, err
	}
	if verdict.Kind != credmodels.KindVisitor {
		r := rejected(verdict, "not a visitor credential")
		return verdict, &r, o.appendRejection(ctx, verdict, r.Reason)
	}
	if verdict.VisitID == 0 {
		r := rejected(verdict, "credential is not linked to a visit")
		return verdict, &r, o.appendRejection(ctx, verdict, r.Reason)
	}
	return verdict, nil, nil
}

// visitTransition runs the flag gate (check-ins only) and the state machine,
// then commits the audit record.
func (o *Orchestrator) visitTransition(ctx context.Context, span trace.Span, verdict credmodels.Verdict, target visitmodels.Status) (models.Result, error) {
	if target == visitmodels.StatusCheckedIn {
		gateCtx, gateSpan := o.tracer.Start(ctx, "scan.flaggate")
		flags, err := o.flags.ActiveFlags(gateCtx, verdict.SubjectID)
		gateSpan.End()
		if err != nil {
			return models.Result{}, fmt.Errorf("flag gate: %w", err)
		}
		if len(flags) > 0 {
			if o.metrics != nil {
				o.metrics.SecurityHolds.Inc()
			}
			res := models.Result{
				Outcome: models.OutcomeSecurityHold,
				Reason:  "visitor is under an active security hold",
				Verdict: verdict,
				VisitID: verdict.VisitID,
				Flags:   flags,
			}
			if err := o.append(ctx, audit.Event{
				Action:      audit.ActionSecurityHold,
				SubjectType: "visitor",
				SubjectID:   verdict.SubjectID,
				Outcome:     string(models.OutcomeSecurityHold),
				Reason:      flags[0].Reason,
			}); err != nil {
				return models.Result{}, err
			}
			o.alert("security", "Security hold at check-in",
				fmt.Sprintf("Visitor %s (id %d) attempted check-in while flagged: %s",
					verdict.SubjectName, verdict.SubjectID, flags[0].Reason))
			return o.finish(ctx, span, &res, nil)
		}
	}

	trCtx, trSpan := o.tracer.Start(ctx, "scan.transition")
	ok, err := o.visits.Transition(trCtx, verdict.VisitID, target)
	trSpan.End()
	if err != nil {
		return models.Result{}, fmt.Errorf("transition visit %d: %w", verdict.VisitID, err)
	}
	if o.metrics != nil {
		o.metrics.VisitTransitions.WithLabelValues(string(target), resultLabel(ok)).Inc()
	}
	if !ok {
		res := models.Result{
			Outcome: models.OutcomeNotAllowed,
			Reason:  fmt.Sprintf("visit cannot move to %s from its current status", target),
			Verdict: verdict,
			VisitID: verdict.VisitID,
		}
		if err := o.appendRejection(ctx, verdict, res.Reason); err != nil {
			return models.Result{}, err
		}
		return o.finish(ctx, span, &res, nil)
	}

	visit, err := o.visits.Find(ctx, verdict.VisitID)
	if err != nil {
		return models.Result{}, fmt.Errorf("reload visit %d: %w", verdict.VisitID, err)
	}
	action := audit.ActionVisitCheckedIn
	if target == visitmodels.StatusCheckedOut {
		action = audit.ActionVisitCheckedOut
	}
	if err := o.append(ctx, audit.Event{
		Action:      action,
		SubjectType: "visit",
		SubjectID:   verdict.VisitID,
		Outcome:     string(models.OutcomeAccepted),
		Device:      middleware.GetDevice(ctx),
		RequestID:   middleware.GetRequestID(ctx),
	}); err != nil {
		return models.Result{}, err
	}
	res := models.Result{
		Outcome: models.OutcomeAccepted,
		Success: true,
		Verdict: verdict,
		VisitID: verdict.VisitID,
		Visit:   &visit,
	}
	return o.finish(ctx, span, &res, nil)
}

func (o *Orchestrator) toggle(ctx context.Context, span trace.Span, verdict credmodels.Verdict, direction attmodels.Direction) (models.Result, error) {
	tgCtx, tgSpan := o.tracer.Start(ctx, "scan.toggle.append")
	toggle, err := o.attendance.Toggle(tgCtx, verdict.CredentialID, direction)
	tgSpan.End()
	if err != nil {
		return models.Result{}, fmt.Errorf("toggle attendance: %w", err)
	}
	if o.metrics != nil {
		o.metrics.AttendanceToggles.WithLabelValues(string(direction), resultLabel(toggle.Accepted)).Inc()
	}
	if !toggle.Accepted {
		res := models.Result{
			Outcome: models.OutcomeNotAllowed,
			Reason:  toggle.Message,
			Verdict: verdict,
			Toggle:  &toggle,
		}
		if err := o.appendRejection(ctx, verdict, toggle.Message); err != nil {
			return models.Result{}, err
		}
		return o.finish(ctx, span, &res, nil)
	}

	if toggle.Late && o.metrics != nil {
		o.metrics.LateArrivals.Inc()
	}
	action := audit.ActionAttendanceSignin
	if direction == attmodels.DirectionSignout {
		action = audit.ActionAttendanceSignout
	}
	if err := o.append(ctx, audit.Event{
		Action:      action,
		SubjectType: "employee",
		SubjectID:   toggle.EmployeeID,
		Outcome:     string(models.OutcomeAccepted),
		Reason:      lateReason(toggle),
		Device:      middleware.GetDevice(ctx),
		RequestID:   middleware.GetRequestID(ctx),
	}); err != nil {
		return models.Result{}, err
	}

	if toggle.ThresholdCrossed {
		o.lateAlert(ctx, toggle)
	}
	res := models.Result{
		Outcome: models.OutcomeAccepted,
		Success: true,
		Verdict: verdict,
		Toggle:  &toggle,
	}
	return o.finish(ctx, span, &res, nil)
}

// lateAlert notifies the admin that an employee crossed the late threshold,
// with a pay projection for context. Estimate failures degrade the message,
// never the toggle.
func (o *Orchestrator) lateAlert(ctx context.Context, toggle attmodels.ToggleResult) {
	body := fmt.Sprintf("Employee %s (id %d) has reached %d late arrivals in the current window.",
		toggle.EmployeeName, toggle.EmployeeID, toggle.LateCount)
	if est, err := o.attendance.EstimateEarnings(ctx, toggle.EmployeeID, 0); err == nil {
		body += fmt.Sprintf(" Worked %.1fh in the window, estimated pay %.2f.", est.TotalHours, est.Pay)
	}
	o.alert("late_threshold", "Late arrival threshold reached", body)
}

// append commits an audit event, retrying once on storage trouble. The mirror
// send never blocks; a full inbox drops the copy, not the scan.
func (o *Orchestrator) append(ctx context.Context, e audit.Event) error {
	ctx, span := o.tracer.Start(ctx, "scan.audit")
	defer span.End()

	e.Timestamp = o.now().UTC()
	stored, err := o.auditLog.Append(ctx, e)
	if err != nil {
		stored, err = o.auditLog.Append(ctx, e)
	}
	if err != nil {
		if o.metrics != nil {
			o.metrics.AuditAppendErrors.Inc()
		}
		return fmt.Errorf("%w: audit append for %s: %v", sentinel.ErrUnavailable, e.Action, err)
	}
	if o.mirror != nil {
		select {
		case o.mirror <- stored:
		default:
			o.logger.Warn("audit mirror inbox full, dropping copy", "action", e.Action)
		}
	}
	return nil
}

func (o *Orchestrator) appendRejection(ctx context.Context, verdict credmodels.Verdict, reason string) error {
	return o.append(ctx, audit.Event{
		Action:      audit.ActionScanRejected,
		SubjectType: subjectType(verdict.Kind),
		SubjectID:   verdict.SubjectID,
		Outcome:     string(verdict.Status),
		Reason:      reason,
		Device:      middleware.GetDevice(ctx),
		RequestID:   middleware.GetRequestID(ctx),
	})
}

// alert sends a notification on a detached context so pipeline completion
// never waits on SMTP.
func (o *Orchestrator) alert(kind, subject, body string) {
	if o.notifier == nil || o.alertEmail == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := o.notifier.Send(ctx, notify.Message{To: o.alertEmail, Subject: subject, Body: body})
		outcome := "sent"
		if err != nil {
			outcome = "failed"
			o.logger.Warn("alert not delivered", "kind", kind, "error", err)
		}
		if o.metrics != nil {
			o.metrics.Notifications.WithLabelValues(kind, outcome).Inc()
		}
	}()
}

func (o *Orchestrator) finish(_ context.Context, span trace.Span, res *models.Result, err error) (models.Result, error) {
	if err != nil {
		span.RecordError(err)
		return models.Result{}, err
	}
	span.SetAttributes(attribute.String("scan.outcome", string(res.Outcome)))
	return *res, nil
}

func rejected(verdict credmodels.Verdict, reason string) models.Result {
	return models.Result{
		Outcome: models.OutcomeRejected,
		Reason:  reason,
		Verdict: verdict,
	}
}

func subjectType(k credmodels.Kind) string {
	switch k {
	case credmodels.KindEmployee:
		return "employee"
	case credmodels.KindVisitor:
		return "visitor"
	default:
		return "unknown"
	}
}

func lateReason(t attmodels.ToggleResult) string {
	if t.Late {
		return fmt.Sprintf("late signin, %d in window", t.LateCount)
	}
	return ""
}

func resultLabel(ok bool) string {
	if ok {
		return "accepted"
	}
	return "rejected"
}
