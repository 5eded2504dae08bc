package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/credential/models"
	"gatepass/internal/credential/store"
	visitmodels "gatepass/internal/visit/models"
	"gatepass/pkg/notify"
	"gatepass/pkg/qrimage"
	"gatepass/pkg/sentinel"
)

// mintAttempts bounds the collision-retry loop. Collisions are improbable but
// not impossible; a fresh random suffix per attempt makes repeat collisions
// vanishingly unlikely.
const mintAttempts = 3

// VisitReader is the slice of the visit module the issuer needs: visitor
// credentials bind to a visit and may only be issued while the visit can
// still use them.
type VisitReader interface {
	Find(ctx context.Context, id int64) (visitmodels.Visit, error)
}

// Issuer mints credentials, guaranteeing code-value uniqueness and producing
// the renderable image for every issued credential.
type Issuer struct {
	store      store.Store
	directory  DirectoryReader
	visits     VisitReader
	renderer   qrimage.Renderer
	notifier   notify.Notifier
	visitorTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

type IssuerOption func(*Issuer)

func WithIssuerLogger(logger *slog.Logger) IssuerOption {
	return func(i *Issuer) { i.logger = logger }
}

// WithNotifier enables the best-effort credential email to visitors.
func WithNotifier(n notify.Notifier) IssuerOption {
	return func(i *Issuer) { i.notifier = n }
}

// WithVisitorTTL overrides the visitor credential validity window.
func WithVisitorTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.visitorTTL = ttl
		}
	}
}

// WithIssuerClock sets the time source for testability.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

func NewIssuer(st store.Store, dir DirectoryReader, visits VisitReader, renderer qrimage.Renderer, opts ...IssuerOption) (*Issuer, error) {
	if st == nil {
		return nil, errors.New("credential store is required")
	}
	if dir == nil {
		return nil, errors.New("directory reader is required")
	}
	if visits == nil {
		return nil, errors.New("visit reader is required")
	}
	if renderer == nil {
		return nil, errors.New("image renderer is required")
	}
	issuer := &Issuer{
		store:      st,
		directory:  dir,
		visits:     visits,
		renderer:   renderer,
		visitorTTL: 24 * time.Hour,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// IssueResult is the outcome of an issuance.
type IssueResult struct {
	Credential models.Credential
	ImagePath  string
	// Reused is true when an active unexpired visitor credential already
	// covered the visit and no new one was minted.
	Reused    bool
	EmailSent bool
}

// IssueEmployee mints a permanent credential for an employee. Employee
// credentials carry no expiry; the system does not enforce a single active
// credential per employee.
func (i *Issuer) IssueEmployee(ctx context.Context, employeeID int64) (IssueResult, error) {
	if _, err := i.directory.FindEmployee(ctx, employeeID); err != nil {
		return IssueResult{}, fmt.Errorf("employee %d: %w", employeeID, err)
	}

	cred, path, err := i.mint(ctx, models.Credential{
		Kind:      models.KindEmployee,
		SubjectID: employeeID,
		IssuedAt:  i.now(),
		Status:    models.StatusActive,
	}, models.EmployeePrefix, employeeID)
	if err != nil {
		return IssueResult{}, err
	}

	i.logger.InfoContext(ctx, "employee credential issued",
		"credential_id", cred.ID,
		"employee_id", employeeID,
	)
	return IssueResult{Credential: cred, ImagePath: path}, nil
}

// IssueVisitor mints a time-bounded credential for a visit, reusing an
// existing active unexpired one rather than stacking duplicates. An existing
// credential that has aged past its expiry is superseded: marked expired,
// then replaced. When a recipient email is given, the credential link is sent
// best-effort.
func (i *Issuer) IssueVisitor(ctx context.Context, visitID int64, recipientEmail string) (IssueResult, error) {
	visit, err := i.visits.Find(ctx, visitID)
	if err != nil {
		return IssueResult{}, fmt.Errorf("visit %d: %w", visitID, err)
	}
	if visit.Status != visitmodels.StatusPending && visit.Status != visitmodels.StatusCheckedIn {
		return IssueResult{}, fmt.Errorf("visit %d status %s: %w", visitID, visit.Status, sentinel.ErrInvalidState)
	}

	now := i.now()
	existing, err := i.store.ActiveForVisit(ctx, visitID)
	switch {
	case err == nil && !existing.ExpiredAt(now):
		i.logger.InfoContext(ctx, "reusing active visitor credential",
			"credential_id", existing.ID,
			"visit_id", visitID,
		)
		return IssueResult{Credential: existing, Reused: true}, nil
	case err == nil:
		// Stale active row: the window passed without a scan triggering the
		// automatic expiry. Supersede it before minting.
		if markErr := i.store.MarkExpired(ctx, existing.ID); markErr != nil {
			return IssueResult{}, fmt.Errorf("supersede expired credential: %w", markErr)
		}
	case !errors.Is(err, sentinel.ErrNotFound):
		return IssueResult{}, fmt.Errorf("check existing credential: %w", err)
	}

	expiry := now.Add(i.visitorTTL)
	cred, path, err := i.mint(ctx, models.Credential{
		Kind:      models.KindVisitor,
		SubjectID: visit.VisitorID,
		VisitID:   visitID,
		IssuedAt:  now,
		ExpiresAt: &expiry,
		Status:    models.StatusActive,
	}, models.VisitorPrefix, visitID)
	if err != nil {
		return IssueResult{}, err
	}

	result := IssueResult{Credential: cred, ImagePath: path}
	if recipientEmail != "" && i.notifier != nil {
		result.EmailSent = i.emailCredential(ctx, recipientEmail, cred, expiry)
	}

	i.logger.InfoContext(ctx, "visitor credential issued",
		"credential_id", cred.ID,
		"visit_id", visitID,
		"expires_at", expiry,
		"email_sent", result.EmailSent,
	)
	return result, nil
}

// Revoke is the explicit administrative path out of active.
func (i *Issuer) Revoke(ctx context.Context, credentialID int64) error {
	if err := i.store.MarkRevoked(ctx, credentialID); err != nil {
		return err
	}
	i.logger.InfoContext(ctx, "credential revoked", "credential_id", credentialID)
	return nil
}

// mint generates a unique code, renders its image, and inserts the record.
// A uniqueness conflict discards the image and retries with a fresh suffix.
func (i *Issuer) mint(ctx context.Context, c models.Credential, prefix string, ref int64) (models.Credential, string, error) {
	var lastErr error
	for attempt := 0; attempt < mintAttempts; attempt++ {
		code := fmt.Sprintf("%s%d_%s", prefix, ref, randomSuffix())
		path, err := i.renderer.Render(code)
		if err != nil {
			return models.Credential{}, "", fmt.Errorf("render credential image: %w", err)
		}

		c.Code = code
		inserted, err := i.store.Insert(ctx, c)
		if err == nil {
			return inserted, path, nil
		}

		if removeErr := i.renderer.Remove(code); removeErr != nil {
			i.logger.WarnContext(ctx, "failed to remove orphaned credential image",
				"code", code,
				"error", removeErr,
			)
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return models.Credential{}, "", fmt.Errorf("insert credential: %w", err)
		}
		lastErr = err
	}
	return models.Credential{}, "", fmt.Errorf("mint credential after %d attempts: %w", mintAttempts, lastErr)
}

func (i *Issuer) emailCredential(ctx context.Context, to string, cred models.Credential, expiry time.Time) bool {
	body := fmt.Sprintf(
		"Your visitor pass is ready.\n\nDownload: /credentials/%s/image\n\nIt expires on %s.\nPlease present it at the security checkpoint.\n",
		cred.Code, expiry.Format("2006-01-02 15:04:05"),
	)
	err := i.notifier.Send(ctx, notify.Message{
		To:      to,
		Subject: "Your visitor pass",
		Body:    body,
	})
	if err != nil {
		// Delivery is fire-and-forget; issuance already succeeded.
		i.logger.WarnContext(ctx, "credential email failed",
			"credential_id", cred.ID,
			"error", err,
		)
		return false
	}
	return true
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
