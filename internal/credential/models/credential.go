package models

import (
	"strings"
	"time"
	"unicode"
)

// Kind discriminates the two credential populations. The kind is encoded in
// the code value's structural prefix so checkpoints can classify offline.
type Kind string

const (
	KindEmployee Kind = "employee"
	KindVisitor  Kind = "visitor"
	KindUnknown  Kind = "unknown"
)

const (
	EmployeePrefix = "EMP_"
	VisitorPrefix  = "VIS_"
)

// Status is the stored lifecycle status of a credential.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusRevoked Status = "revoked"
)

// Credential is an issued, uniquely-coded token. Visitor credentials always
// carry an expiry and bind to a visit; employee credentials never expire.
type Credential struct {
	ID        int64
	Code      string
	Kind      Kind
	SubjectID int64 // employee_id or visitor_id depending on Kind
	VisitID   int64 // zero for employee credentials
	IssuedAt  time.Time
	ExpiresAt *time.Time
	Status    Status
}

// ExpiredAt reports whether the validity window has passed. Credentials with
// no expiry never expire by time.
func (c Credential) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Normalize strips the contamination unreliable scanners introduce: leading
// and trailing whitespace plus any control characters anywhere in the value.
// Interior printable characters are preserved.
func Normalize(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	return strings.TrimSpace(cleaned)
}

// Classify determines the credential kind from the structural prefix of an
// already-normalized code value.
func Classify(code string) Kind {
	switch {
	case strings.HasPrefix(code, EmployeePrefix):
		return KindEmployee
	case strings.HasPrefix(code, VisitorPrefix):
		return KindVisitor
	default:
		return KindUnknown
	}
}

// VerdictStatus is the outcome taxonomy of a verification, evaluated in fixed
// priority order: malformed → unknown → not_found → expired → revoked → valid.
type VerdictStatus string

const (
	VerdictValid     VerdictStatus = "valid"
	VerdictExpired   VerdictStatus = "expired"
	VerdictRevoked   VerdictStatus = "revoked"
	VerdictNotFound  VerdictStatus = "not_found"
	VerdictMalformed VerdictStatus = "malformed"
	VerdictUnknown   VerdictStatus = "unknown"
)

// Verdict is the typed result of verifying a scanned code. It carries enough
// subject context for the caller to act without a second lookup.
type Verdict struct {
	Kind         Kind          `json:"kind"`
	Status       VerdictStatus `json:"status"`
	Code         string        `json:"code"`
	CredentialID int64         `json:"credential_id,omitempty"`
	SubjectID    int64         `json:"subject_id,omitempty"`
	SubjectName  string        `json:"subject_name,omitempty"`
	VisitID      int64         `json:"visit_id,omitempty"`
	ExpiresAt    *time.Time    `json:"expires_at,omitempty"`
	Message      string        `json:"message"`
}

// Valid reports whether the verdict permits a domain action.
func (v Verdict) Valid() bool {
	return v.Status == VerdictValid
}
