package application

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindMapsSentinels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", ErrRevealPending), "reveal_pending"},
		{ErrArithmeticDegenerate, "arithmetic_degenerate"},
		{errors.New("disk on fire"), "unexpected"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
