package hal

import (
	"testing"

	"kernel/kerr"
)

func TestRegisterHandlerRejectsNil(t *testing.T) {
	defer Init()
	if got := RegisterHandler(3, nil); got != kerr.InvalidArgument {
		t.Fatalf("expected InvalidArgument; got %v", got)
	}
}

func TestDispatchInvokesRegisteredHandler(t *testing.T) {
	defer Init()

	var gotVector uint8
	var gotErrCode uint32
	RegisterHandler(14, func(vector uint8, errCode uint32) {
		gotVector, gotErrCode = vector, errCode
	})

	Dispatch(14, 0xdead)
	if gotVector != 14 || gotErrCode != 0xdead {
		t.Fatalf("handler saw (%d, %#x); want (14, 0xdead)", gotVector, gotErrCode)
	}
}

func TestDispatchIgnoresUnregisteredVector(t *testing.T) {
	defer Init()
	Dispatch(200, 0) // must not panic
}

func TestUnregisterHandlerClearsSlot(t *testing.T) {
	defer Init()

	called := false
	RegisterHandler(7, func(uint8, uint32) { called = true })
	UnregisterHandler(7)
	Dispatch(7, 0)

	if called {
		t.Fatal("expected no handler to run after UnregisterHandler")
	}
}
