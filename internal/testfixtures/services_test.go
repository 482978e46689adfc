package testfixtures

import (
	"context"
	"testing"

	"github.com/example/confidential-scheduler/internal/application"
)

// TestFullSchedulingCycle drives the whole pipeline end to end: submission,
// team optimization, personal assignment and the reveal protocol.
func TestFullSchedulingCycle(t *testing.T) {
	factory := NewServiceFactory()
	store := NewMemoryStore()
	coproc := NewCoprocessor(t)
	recorder := &application.EventRecorder{}

	prefs := factory.NewPreferenceService(PreferenceServiceDeps{
		Ledger: store, Schedules: store, Reveals: store, Coprocessor: coproc, Events: recorder,
	})
	directory := factory.NewDirectoryService(DirectoryServiceDeps{Directory: store})
	optimizer := factory.NewOptimizerService(OptimizerServiceDeps{
		Ledger: store, Directory: store, Schedules: store, Coprocessor: coproc, Events: recorder,
	})
	reveals := factory.NewRevealService(RevealServiceDeps{
		Schedules: store, Reveals: store, Decryptor: coproc, Verifier: NewVerifier(t, coproc), Events: recorder,
	})

	ctx := context.Background()
	admin := application.Principal{UserID: "root", IsAdmin: true}
	alice := application.Principal{UserID: "alice"}

	for _, fixture := range []PreferenceFixture{
		NewPreference(WithEmployee("alice"), WithDays(4, 6, 1, 80)),
		NewPreference(WithEmployee("bob"), WithDays(2, 2, 2, 40)),
	} {
		if _, err := prefs.SubmitPreference(ctx, fixture.Materialise(t, coproc)); err != nil {
			t.Fatalf("submission for %s failed: %v", fixture.Employee, err)
		}
	}
	for _, employee := range []string{"alice", "bob"} {
		if err := directory.AddMember(ctx, admin, "platform", employee); err != nil {
			t.Fatalf("AddMember(%s) failed: %v", employee, err)
		}
	}

	if _, err := optimizer.OptimizeTeam(ctx, admin, "platform"); err != nil {
		t.Fatalf("OptimizeTeam failed: %v", err)
	}
	if _, err := optimizer.AssignPersonal(ctx, admin, "alice", "platform"); err != nil {
		t.Fatalf("AssignPersonal failed: %v", err)
	}

	requestID, err := reveals.RequestReveal(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("RequestReveal failed: %v", err)
	}
	result, err := coproc.Deliver(requestID)
	if err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if err := reveals.ResolveReveal(ctx, result.RequestID, result.Plaintext, result.Proof); err != nil {
		t.Fatalf("ResolveReveal failed: %v", err)
	}

	revealed, err := reveals.RevealedSchedule(ctx, alice, "alice")
	if err != nil {
		t.Fatalf("RevealedSchedule failed: %v", err)
	}
	// Team means: office (4+2)/2=3, collab (6+2)/2=4.
	// Alice's blend: office (4+3)/2=3, collab (6+4)/2=5.
	if revealed.OfficeDays != 3 || revealed.CollabDays != 5 {
		t.Fatalf("unexpected revealed schedule: %+v", revealed)
	}

	kinds := make([]application.EventKind, 0, 4)
	for _, event := range recorder.Events() {
		kinds = append(kinds, event.Kind)
	}
	want := []application.EventKind{
		application.EventSubmitted,
		application.EventSubmitted,
		application.EventOptimized,
		application.EventAssigned,
		application.EventRevealed,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
}
