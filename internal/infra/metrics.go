package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	commandsProcessed atomic.Uint64
	listingsCreated   atomic.Uint64
	bidsAccepted      atomic.Uint64
	settlements       atomic.Uint64
	mailsQueued       atomic.Uint64
	integrityEvents   atomic.Uint64
	errorsTotal       atomic.Uint64
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordCommand records one command processed by the engine loop.
func (m *Metrics) RecordCommand() { m.commandsProcessed.Add(1) }

// RecordListing records a listing created.
func (m *Metrics) RecordListing() { m.listingsCreated.Add(1) }

// RecordBid records an accepted bid or buyout.
func (m *Metrics) RecordBid() { m.bidsAccepted.Add(1) }

// RecordSettlement records a terminal settlement (buyout, sale, expiry, cancel).
func (m *Metrics) RecordSettlement() { m.settlements.Add(1) }

// RecordMail records a mail message queued for deferred delivery.
func (m *Metrics) RecordMail() { m.mailsQueued.Add(1) }

// RecordIntegrityEvent records a data-integrity fault.
func (m *Metrics) RecordIntegrityEvent() { m.integrityEvents.Add(1) }

// RecordError records an error occurrence.
func (m *Metrics) RecordError() { m.errorsTotal.Add(1) }

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CommandsProcessed uint64    `json:"commands_processed"`
	ListingsCreated   uint64    `json:"listings_created"`
	BidsAccepted      uint64    `json:"bids_accepted"`
	Settlements       uint64    `json:"settlements"`
	MailsQueued       uint64    `json:"mails_queued"`
	IntegrityEvents   uint64    `json:"integrity_events"`
	ErrorsTotal       uint64    `json:"errors_total"`
	Timestamp         time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CommandsProcessed: m.commandsProcessed.Load(),
		ListingsCreated:   m.listingsCreated.Load(),
		BidsAccepted:      m.bidsAccepted.Load(),
		Settlements:       m.settlements.Load(),
		MailsQueued:       m.mailsQueued.Load(),
		IntegrityEvents:   m.integrityEvents.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.commandsProcessed.Store(0)
	m.listingsCreated.Store(0)
	m.bidsAccepted.Store(0)
	m.settlements.Store(0)
	m.mailsQueued.Store(0)
	m.integrityEvents.Store(0)
	m.errorsTotal.Store(0)
}
