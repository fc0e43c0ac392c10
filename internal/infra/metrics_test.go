package infra

import (
	"testing"
)

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordCommand()
	m.RecordCommand()
	m.RecordListing()
	m.RecordSettlement()
	m.RecordMail()
	m.RecordMail()
	m.RecordMail()

	snap := m.Snapshot()

	if snap.CommandsProcessed != 2 {
		t.Errorf("Expected 2 commands, got %d", snap.CommandsProcessed)
	}
	if snap.ListingsCreated != 1 {
		t.Errorf("Expected 1 listing, got %d", snap.ListingsCreated)
	}
	if snap.Settlements != 1 {
		t.Errorf("Expected 1 settlement, got %d", snap.Settlements)
	}
	if snap.MailsQueued != 3 {
		t.Errorf("Expected 3 mails, got %d", snap.MailsQueued)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}
	m.RecordIntegrityEvent()
	m.RecordError()

	m.Reset()
	snap := m.Snapshot()
	if snap.IntegrityEvents != 0 || snap.ErrorsTotal != 0 {
		t.Errorf("Reset should zero all counters: %+v", snap)
	}
}
