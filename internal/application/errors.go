package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")

	// ErrEmptyTeam is returned when a team optimization finds no members in the directory.
	ErrEmptyTeam = errors.New("application: team has no members")
	// ErrNoPreference is returned when an operation requires a ledger entry the employee never submitted.
	ErrNoPreference = errors.New("application: employee has no submitted preference")
	// ErrTeamNotOptimized is returned when an operation requires a prior team optimization run.
	ErrTeamNotOptimized = errors.New("application: team schedule not optimized")
	// ErrNotAssigned is returned when an operation requires an assigned personal schedule.
	ErrNotAssigned = errors.New("application: personal schedule not assigned")

	// ErrAlreadyRevealed is returned when a reveal is attempted against a schedule whose
	// plaintext was already committed.
	ErrAlreadyRevealed = errors.New("application: schedule already revealed")
	// ErrRevealPending is returned when a reveal is requested while an earlier request
	// has not yet been resolved.
	ErrRevealPending = errors.New("application: decryption request already pending")
	// ErrUnknownRequest is returned when a decryption delivery references no pending request.
	ErrUnknownRequest = errors.New("application: unknown decryption request")
	// ErrInvalidProof is returned when a decryption delivery's attestation does not verify.
	ErrInvalidProof = errors.New("application: invalid decryption proof")
	// ErrMalformedPayload is returned when a verified delivery does not decode to the
	// expected plaintext shape.
	ErrMalformedPayload = errors.New("application: malformed decryption payload")

	// ErrArithmeticDegenerate is returned when a homomorphic computation hits a
	// degenerate operand, such as division by an encrypted zero. It indicates
	// malformed upstream data rather than a caller mistake.
	ErrArithmeticDegenerate = errors.New("application: degenerate ciphertext arithmetic")
)
