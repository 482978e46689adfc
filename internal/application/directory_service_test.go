package application

import (
	"context"
	"errors"
	"testing"
)

func TestDirectoryService_AddMember(t *testing.T) {
	t.Parallel()

	t.Run("requires administrator privileges", func(t *testing.T) {
		store := newStoreStub()
		svc := NewDirectoryService(store, nil)

		err := svc.AddMember(context.Background(), Principal{UserID: "alice"}, "platform", "alice")
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("requires identifiers", func(t *testing.T) {
		store := newStoreStub()
		svc := NewDirectoryService(store, nil)

		err := svc.AddMember(context.Background(), Principal{UserID: "root", IsAdmin: true}, "  ", "alice")
		if err == nil {
			t.Fatalf("expected error for blank team identifier")
		}
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		store := newStoreStub()
		svc := NewDirectoryService(store, nil)
		admin := Principal{UserID: "root", IsAdmin: true}

		for _, employee := range []string{"carol", "alice", "bob"} {
			if err := svc.AddMember(context.Background(), admin, "platform", employee); err != nil {
				t.Fatalf("AddMember(%s) returned error: %v", employee, err)
			}
		}

		members, err := svc.Members(context.Background(), Principal{UserID: "alice"}, "platform")
		if err != nil {
			t.Fatalf("Members returned error: %v", err)
		}
		want := []string{"carol", "alice", "bob"}
		if len(members) != len(want) {
			t.Fatalf("expected %d members, got %d", len(want), len(members))
		}
		for i := range want {
			if members[i] != want[i] {
				t.Fatalf("expected member %d to be %s, got %s", i, want[i], members[i])
			}
		}
	})
}
