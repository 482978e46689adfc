package application

import (
	"time"

	"github.com/example/confidential-scheduler/internal/fhe"
)

// Principal identifies the caller of an operation. Identity verification is
// performed by an external collaborator; the core only consults the admin
// flag and the employee identifier carried here.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// PreferenceRecord is one immutable ledger entry. Record identifiers are
// assigned sequentially by the ledger; later submissions from the same
// employee supersede earlier ones without replacing them.
type PreferenceRecord struct {
	ID           uint64
	Employee     string
	DaysInOffice fhe.Handle
	TeamDays     fhe.Handle
	FocusDays    fhe.Handle
	Flexibility  fhe.Handle
	SubmittedAt  time.Time
}

// TeamSchedule is the encrypted per-team schedule. Each optimization run
// fully overwrites it.
type TeamSchedule struct {
	Team         string
	OfficeDays   fhe.Handle
	CollabDays   fhe.Handle
	OverlapScore fhe.Handle
	Optimized    bool
	UpdatedAt    time.Time
}

// PersonalSchedule is the encrypted per-employee blended assignment. It is
// zero-initialised and unassigned at first preference submission.
type PersonalSchedule struct {
	Employee   string
	OfficeDays fhe.Handle
	CollabDays fhe.Handle
	Assigned   bool
	UpdatedAt  time.Time
}

// RevealedSchedule carries the plaintext of a personal schedule after a
// successful decryption. Revealed transitions false to true exactly once.
type RevealedSchedule struct {
	Employee   string
	OfficeDays uint32
	CollabDays uint32
	Revealed   bool
	RevealedAt *time.Time
}

// RequestKind names the record a decryption request targets.
type RequestKind string

// RequestKindPersonalSchedule is the only reveal path in this design.
const RequestKindPersonalSchedule RequestKind = "personal_schedule"

// DecryptionRequest correlates an externally issued request identifier with
// the record whose plaintext it will deliver. The entry is consumed when the
// matching delivery is committed.
type DecryptionRequest struct {
	ID        string
	Employee  string
	Kind      RequestKind
	CreatedAt time.Time
}

// RevealState describes the coordinator state of an employee's personal
// schedule. Revealed is terminal.
type RevealState string

const (
	RevealStateUnassigned RevealState = "unassigned"
	RevealStateAssigned   RevealState = "assigned"
	RevealStatePending    RevealState = "pending"
	RevealStateRevealed   RevealState = "revealed"
)

// SubmitPreferenceParams carries a preference submission. The four handles
// arrive pre-encrypted from the client; no content validation is possible.
type SubmitPreferenceParams struct {
	Principal    Principal
	DaysInOffice fhe.Handle
	TeamDays     fhe.Handle
	FocusDays    fhe.Handle
	Flexibility  fhe.Handle
}
