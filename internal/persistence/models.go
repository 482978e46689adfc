package persistence

import "time"

// PreferenceRecord is a ledger entry as stored. Ciphertext handles are kept
// in their sealed serialized form; storage never inspects them.
type PreferenceRecord struct {
	ID           uint64
	Employee     string
	DaysInOffice []byte
	TeamDays     []byte
	FocusDays    []byte
	Flexibility  []byte
	SubmittedAt  time.Time
}

// TeamSchedule is the stored encrypted team schedule.
type TeamSchedule struct {
	Team         string
	OfficeDays   []byte
	CollabDays   []byte
	OverlapScore []byte
	Optimized    bool
	UpdatedAt    time.Time
}

// PersonalSchedule is the stored encrypted personal schedule.
type PersonalSchedule struct {
	Employee   string
	OfficeDays []byte
	CollabDays []byte
	Assigned   bool
	UpdatedAt  time.Time
}

// RevealedSchedule is the stored plaintext schedule row. It exists from the
// employee's first submission with Revealed false, and flips to true exactly
// once.
type RevealedSchedule struct {
	Employee   string
	OfficeDays uint32
	CollabDays uint32
	Revealed   bool
	RevealedAt *time.Time
}

// DecryptionRequest is a pending correlation entry for an issued decryption
// request.
type DecryptionRequest struct {
	ID        string
	Employee  string
	Kind      string
	CreatedAt time.Time
}
