package kerr

import "testing"

func TestStringCoversTaxonomy(t *testing.T) {
	cases := []struct {
		code Code
		want string
	}{
		{NotImplemented, "not-implemented"},
		{InvalidArgument, "invalid-argument"},
		{NoSuchDevice, "no-such-device"},
		{ResourceExhausted, "resource-exhausted"},
		{Busy, "busy"},
		{InternalCorruption, "internal-corruption"},
		{Code(0), "unknown"},
	}

	for _, c := range cases {
		if got := c.code.String(); got != c.want {
			t.Errorf("Code(%d).String() = %q; want %q", c.code, got, c.want)
		}
	}
}

func TestNotImplementedMatchesSyscallABI(t *testing.T) {
	if NotImplemented != -38 {
		t.Fatalf("NotImplemented must equal -38 per the syscall ABI; got %d", NotImplemented)
	}
}
