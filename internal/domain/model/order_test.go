package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewOrderNumber(t *testing.T) {
	at := time.UnixMilli(1700000000000)

	got := NewOrderNumber(at)
	if got != "ORD1700000000000" {
		t.Fatalf("got %q", got)
	}
	if !strings.HasPrefix(got, "ORD") {
		t.Fatalf("got %q", got)
	}
}

func TestIsValidOrderStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "shipped", "delivered", "cancelled"} {
		if !IsValidOrderStatus(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	for _, s := range []string{"", "PENDING", "done", "canceled"} {
		if IsValidOrderStatus(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}

func TestIsValidPaymentStatus(t *testing.T) {
	for _, s := range []string{"pending", "completed", "failed", "refunded"} {
		if !IsValidPaymentStatus(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	if IsValidPaymentStatus("paid") {
		t.Fatal("paid should be invalid")
	}
}

func TestIsValidPaymentMethod(t *testing.T) {
	for _, s := range []string{"credit_card", "debit_card", "bank_transfer", "cash_on_delivery", "qr_transfer"} {
		if !IsValidPaymentMethod(s) {
			t.Fatalf("%q should be valid", s)
		}
	}
	if IsValidPaymentMethod("paypal") {
		t.Fatal("paypal should be invalid")
	}
}
