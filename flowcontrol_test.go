package http2

import "testing"

func TestFlowControllerConsumeSend(t *testing.T) {
	fc := NewFlowController(100)

	if !fc.CanSend(100) {
		t.Fatal("expected to be able to send exactly the full window")
	}
	if fc.CanSend(101) {
		t.Fatal("expected sending past the window to be rejected")
	}

	fc.ConsumeSend(60)
	if fc.SendWindow() != 40 {
		t.Fatalf("unexpected send window: %d", fc.SendWindow())
	}
	if fc.CanSend(41) {
		t.Fatal("expected the shrunk window to reject an oversized send")
	}
}

func TestFlowControllerApplyWindowUpdate(t *testing.T) {
	fc := NewFlowController(100)
	fc.ConsumeSend(100)
	if fc.SendWindow() != 0 {
		t.Fatalf("unexpected send window: %d", fc.SendWindow())
	}

	if err := fc.ApplyWindowUpdate(0); err == nil {
		t.Fatal("expected a zero increment to be a PROTOCOL_ERROR")
	}

	if err := fc.ApplyWindowUpdate(50); err != nil {
		t.Fatal(err)
	}
	if fc.SendWindow() != 50 {
		t.Fatalf("unexpected send window after update: %d", fc.SendWindow())
	}
}

func TestFlowControllerApplySendIncrement(t *testing.T) {
	fc := NewFlowController(100)
	fc.ConsumeSend(100)

	if !fc.ApplySendIncrement(10) {
		t.Fatal("expected a legal increment to succeed")
	}
	if fc.SendWindow() != 10 {
		t.Fatalf("unexpected send window: %d", fc.SendWindow())
	}

	if fc.ApplySendIncrement(maxWindowSize) {
		t.Fatal("expected an increment overflowing 2^31-1 to fail")
	}
	if fc.SendWindow() != 10 {
		t.Fatalf("a failed increment must not mutate the window: %d", fc.SendWindow())
	}
}

func TestFlowControllerApplyWindowUpdateOverflow(t *testing.T) {
	fc := NewFlowController(maxWindowSize)
	if err := fc.ApplyWindowUpdate(1); err == nil {
		t.Fatal("expected overflowing past 2^31-1 to be a FLOW_CONTROL_ERROR")
	}
}

func TestFlowControllerInitialWindowDeltaCanGoNegative(t *testing.T) {
	fc := NewFlowController(100)
	fc.ConsumeSend(90)

	// SETTINGS_INITIAL_WINDOW_SIZE shrinking retroactively can legally
	// drive an open stream's window negative (RFC 7540 Section 6.9.2).
	if err := fc.ApplyInitialWindowDelta(-50); err != nil {
		t.Fatal(err)
	}
	if fc.SendWindow() != -40 {
		t.Fatalf("unexpected send window: %d", fc.SendWindow())
	}
	if fc.CanSend(1) {
		t.Fatal("a negative window must reject any send")
	}
}

func TestFlowControllerReplenish(t *testing.T) {
	fc := NewFlowController(100)
	fc.ConsumeRecv(60)

	inc, need := fc.NeedsReplenish()
	if !need {
		t.Fatal("expected replenish to be needed once past half the window")
	}
	if inc != 60 {
		t.Fatalf("unexpected replenish increment: %d", inc)
	}

	fc.Replenish(inc)
	if _, need := fc.NeedsReplenish(); need {
		t.Fatal("expected no replenish needed once back to full")
	}
}
