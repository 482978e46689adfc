package testfixtures

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/confidential-scheduler/internal/application"
	"github.com/example/confidential-scheduler/internal/fhe"
)

var (
	employeeCounter uint64
	teamCounter     uint64
)

var referenceTime = time.Date(2026, time.February, 3, 9, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// NewCoprocessor constructs a software co-processor with fixed key material so
// handle contents are reproducible across test runs.
func NewCoprocessor(tb testing.TB) *fhe.SoftwareCoprocessor {
	tb.Helper()

	sealKey := bytes.Repeat([]byte{0x42}, 32)
	attestKey := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{0x24}, ed25519.SeedSize))

	coproc, err := fhe.NewSoftwareCoprocessor(sealKey, attestKey)
	if err != nil {
		tb.Fatalf("failed to construct co-processor: %v", err)
	}
	return coproc
}

// NewVerifier returns a proof verifier matching the co-processor attestation
// key used by NewCoprocessor.
func NewVerifier(tb testing.TB, coproc *fhe.SoftwareCoprocessor) *fhe.Ed25519Verifier {
	tb.Helper()

	verifier, err := fhe.NewEd25519Verifier(coproc.AttestationPublicKey())
	if err != nil {
		tb.Fatalf("failed to construct verifier: %v", err)
	}
	return verifier
}

// NextEmployeeID returns a deterministic unique employee identifier.
func NextEmployeeID() string {
	return fmt.Sprintf("employee-%d", atomic.AddUint64(&employeeCounter, 1))
}

// NextTeamID returns a deterministic unique team identifier.
func NextTeamID() string {
	return fmt.Sprintf("team-%d", atomic.AddUint64(&teamCounter, 1))
}

// PreferenceFixture describes a preference submission in plaintext form.
// Materialise encrypts the values so tests state intent in clear numbers.
type PreferenceFixture struct {
	Employee     string
	DaysInOffice uint32
	TeamDays     uint32
	FocusDays    uint32
	Flexibility  uint32
}

// PreferenceOption configures the generated preference fixture.
type PreferenceOption func(*PreferenceFixture)

// WithEmployee overrides the fixture employee.
func WithEmployee(employee string) PreferenceOption {
	return func(f *PreferenceFixture) { f.Employee = employee }
}

// WithDays sets the four preference values in declaration order.
func WithDays(office, team, focus, flexibility uint32) PreferenceOption {
	return func(f *PreferenceFixture) {
		f.DaysInOffice = office
		f.TeamDays = team
		f.FocusDays = focus
		f.Flexibility = flexibility
	}
}

// NewPreference builds a preference fixture with sensible defaults.
func NewPreference(opts ...PreferenceOption) PreferenceFixture {
	fixture := PreferenceFixture{
		Employee:     NextEmployeeID(),
		DaysInOffice: 3,
		TeamDays:     2,
		FocusDays:    1,
		Flexibility:  50,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// Materialise encrypts the fixture into submission parameters authored by the
// fixture employee.
func (f PreferenceFixture) Materialise(tb testing.TB, coproc fhe.Coprocessor) application.SubmitPreferenceParams {
	tb.Helper()

	encrypt := func(value uint32) fhe.Handle {
		handle, err := coproc.Encrypt(value)
		if err != nil {
			tb.Fatalf("failed to encrypt fixture value %d: %v", value, err)
		}
		return handle
	}

	return application.SubmitPreferenceParams{
		Principal:    application.Principal{UserID: f.Employee},
		DaysInOffice: encrypt(f.DaysInOffice),
		TeamDays:     encrypt(f.TeamDays),
		FocusDays:    encrypt(f.FocusDays),
		Flexibility:  encrypt(f.Flexibility),
	}
}
