package domain

import (
	"errors"
	"testing"
)

func TestBalance_DebitCredit(t *testing.T) {
	b := &Balance{Actor: "arden", Copper: 100}

	if err := b.Debit(60); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}
	if b.Copper != 40 {
		t.Errorf("expected 40 copper, got %d", b.Copper)
	}

	b.Credit(10)
	if b.Copper != 50 {
		t.Errorf("expected 50 copper, got %d", b.Copper)
	}
}

func TestBalance_DebitInsufficient(t *testing.T) {
	b := &Balance{Actor: "arden", Copper: 10}

	err := b.Debit(11)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if b.Copper != 10 {
		t.Errorf("failed debit must not change the balance, got %d", b.Copper)
	}
}

func TestBalanceBook_GetCreates(t *testing.T) {
	bb := NewBalanceBook()

	b := bb.Get("new-actor")
	if b.Copper != 0 {
		t.Errorf("fresh balance should be 0, got %d", b.Copper)
	}

	b.Credit(25)
	if bb.Get("new-actor").Copper != 25 {
		t.Error("Get should return the same balance instance")
	}
}

func TestBalanceBook_Snapshot(t *testing.T) {
	bb := NewBalanceBook()
	bb.Get("a").Credit(1)
	bb.Get("b").Credit(2)

	snap := bb.Snapshot()
	if len(snap) != 2 || snap["a"].Copper != 1 || snap["b"].Copper != 2 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}

	// snapshot is a copy
	bb.Get("a").Credit(10)
	if snap["a"].Copper != 1 {
		t.Error("snapshot must not alias live balances")
	}
}
