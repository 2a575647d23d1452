package core

import (
	"context"
	"net/url"
	"strings"
	"testing"
)

func newPaymentFixture(t *testing.T) (PaymentService, *Session) {
	t.Helper()
	sessions := newTestService(newFakeProfileRepository(), newFakeGuestStore(), nil)
	session, err := sessions.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	payments, err := NewPaymentService(sessions, "merchant@bank", "NexaNeuron", "499.00", nil)
	if err != nil {
		t.Fatalf("NewPaymentService returned error: %v", err)
	}
	return payments, session
}

func TestCreateOrderBuildsPaymentLink(t *testing.T) {
	payments, session := newPaymentFixture(t)

	order, err := payments.CreateOrder(context.Background(), session)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.Reference == "" {
		t.Error("order has no reference")
	}
	if !strings.HasPrefix(order.Link, "upi://pay?") {
		t.Errorf("link = %q, want a upi://pay link", order.Link)
	}
	parsed, err := url.Parse(order.Link)
	if err != nil {
		t.Fatalf("link does not parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("pa") != "merchant@bank" {
		t.Errorf("pa = %q", q.Get("pa"))
	}
	if q.Get("am") != "499.00" {
		t.Errorf("am = %q", q.Get("am"))
	}
	if q.Get("cu") != "INR" {
		t.Errorf("cu = %q", q.Get("cu"))
	}
	if !strings.Contains(q.Get("tn"), order.Reference) {
		t.Error("transaction note does not carry the order reference")
	}
}

func TestConfirmUnlocksPremium(t *testing.T) {
	payments, session := newPaymentFixture(t)

	order, err := payments.CreateOrder(context.Background(), session)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	coinsBefore := session.Snapshot().Coins

	if err := payments.Confirm(context.Background(), session, order.Reference); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	profile := session.Snapshot()
	if !profile.IsPremium {
		t.Error("session is not premium after confirmation")
	}
	if profile.Coins != coinsBefore {
		t.Errorf("coins changed from %d to %d; unlock must not touch the balance", coinsBefore, profile.Coins)
	}

	// A reference is single-use.
	if err := payments.Confirm(context.Background(), session, order.Reference); err == nil {
		t.Error("expected error for a replayed reference")
	}
}

func TestConfirmRejectsUnknownReference(t *testing.T) {
	payments, session := newPaymentFixture(t)
	if err := payments.Confirm(context.Background(), session, "made-up"); err == nil {
		t.Error("expected error for an unknown reference")
	}
}

func TestCreateOrderRejectsPremiumAccount(t *testing.T) {
	sessions := newTestService(newFakeProfileRepository(), newFakeGuestStore(), nil)
	session, _ := sessions.Resolve(context.Background(), nil)
	if err := sessions.UnlockPremium(context.Background(), session); err != nil {
		t.Fatalf("UnlockPremium returned error: %v", err)
	}
	payments, err := NewPaymentService(sessions, "merchant@bank", "NexaNeuron", "499.00", nil)
	if err != nil {
		t.Fatalf("NewPaymentService returned error: %v", err)
	}
	if _, err := payments.CreateOrder(context.Background(), session); err == nil {
		t.Error("expected error for an already-premium account")
	}
}
