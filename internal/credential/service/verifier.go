package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gatepass/internal/credential/models"
	"gatepass/internal/credential/store"
	"gatepass/internal/directory"
	"gatepass/pkg/sentinel"
)

// DirectoryReader is the slice of the directory needed to attach subject
// context to verdicts.
type DirectoryReader interface {
	FindVisitor(ctx context.Context, id int64) (directory.Visitor, error)
	FindEmployee(ctx context.Context, id int64) (directory.Employee, error)
}

// Verifier turns raw scanned strings into typed verdicts. Domain outcomes
// (not found, expired, revoked) are verdicts, never errors; the error return
// is reserved for storage failures so callers cannot mistake an outage for an
// absent credential.
type Verifier struct {
	store     store.Store
	directory DirectoryReader
	logger    *slog.Logger
	now       func() time.Time
}

type VerifierOption func(*Verifier)

func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) { v.logger = logger }
}

// WithVerifierClock sets the time source for testability.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

func NewVerifier(st store.Store, dir DirectoryReader, opts ...VerifierOption) (*Verifier, error) {
	if st == nil {
		return nil, errors.New("credential store is required")
	}
	if dir == nil {
		return nil, errors.New("directory reader is required")
	}
	v := &Verifier{
		store:     st,
		directory: dir,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify normalizes and classifies a raw scan, then evaluates the verdict in
// fixed priority order: not-found, expired, revoked, valid. Repeated calls
// with no intervening state change return the same verdict.
func (v *Verifier) Verify(ctx context.Context, raw string) (models.Verdict, error) {
	normalized := models.Normalize(raw)
	if normalized == "" {
		return models.Verdict{
			Kind:    models.KindUnknown,
			Status:  models.VerdictMalformed,
			Code:    raw,
			Message: "unreadable scan payload",
		}, nil
	}

	kind := models.Classify(normalized)
	if kind == models.KindUnknown {
		// Terminal: unknown formats never touch storage.
		return models.Verdict{
			Kind:    models.KindUnknown,
			Status:  models.VerdictUnknown,
			Code:    raw,
			Message: "unknown code format",
		}, nil
	}

	cred, err := v.lookup(ctx, normalized)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Verdict{
			Kind:    kind,
			Status:  models.VerdictNotFound,
			Code:    raw,
			Message: "code not found",
		}, nil
	}
	if err != nil {
		return models.Verdict{}, fmt.Errorf("credential lookup: %w", err)
	}

	verdict := models.Verdict{
		Kind:         cred.Kind,
		Code:         raw,
		CredentialID: cred.ID,
		SubjectID:    cred.SubjectID,
		VisitID:      cred.VisitID,
		ExpiresAt:    cred.ExpiresAt,
	}
	name, err := v.subjectName(ctx, cred)
	if err != nil {
		return models.Verdict{}, err
	}
	verdict.SubjectName = name

	now := v.now()
	switch {
	case cred.ExpiredAt(now):
		if cred.Status == models.StatusActive {
			// Automatic active→expired once the window passes. Best effort:
			// the verdict stands even if the status write fails.
			if markErr := v.store.MarkExpired(ctx, cred.ID); markErr != nil {
				v.logger.WarnContext(ctx, "failed to mark credential expired",
					"credential_id", cred.ID,
					"error", markErr,
				)
			}
		}
		verdict.Status = models.VerdictExpired
		verdict.Message = "code has expired"
	case cred.Status != models.StatusActive:
		verdict.Status = models.VerdictRevoked
		verdict.Message = "code has been revoked"
	default:
		verdict.Status = models.VerdictValid
		verdict.Message = "code verified"
	}
	return verdict, nil
}

// lookup is exact-match first. On a miss it retries against trimmed stored
// values so rows written before normalization-at-issue can still match, and
// self-heals them to the normalized form so the next lookup is exact.
func (v *Verifier) lookup(ctx context.Context, normalized string) (models.Credential, error) {
	cred, err := v.store.Lookup(ctx, normalized)
	if !errors.Is(err, sentinel.ErrNotFound) {
		return cred, err
	}

	cred, err = v.store.LookupTrimmed(ctx, normalized)
	if err != nil {
		return models.Credential{}, err
	}
	if cred.Code != normalized {
		if rewriteErr := v.store.Rewrite(ctx, cred.ID, normalized); rewriteErr != nil {
			v.logger.WarnContext(ctx, "failed to normalize stored code value",
				"credential_id", cred.ID,
				"error", rewriteErr,
			)
		} else {
			cred.Code = normalized
		}
	}
	return cred, nil
}

func (v *Verifier) subjectName(ctx context.Context, cred models.Credential) (string, error) {
	switch cred.Kind {
	case models.KindEmployee:
		emp, err := v.directory.FindEmployee(ctx, cred.SubjectID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("employee lookup: %w", err)
		}
		return emp.Name, nil
	case models.KindVisitor:
		vis, err := v.directory.FindVisitor(ctx, cred.SubjectID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("visitor lookup: %w", err)
		}
		return vis.FullName, nil
	default:
		return "", nil
	}
}
