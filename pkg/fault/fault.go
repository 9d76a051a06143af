package fault

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// ID computes the stable content-hash identifier for a fault, used both
// to create a new Fault record and to look up whether one already exists
// for the same condition.
func ID(kind, subject, messageTemplate string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(subject))
	h.Write([]byte{0})
	h.Write([]byte(messageTemplate))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Report either creates a new Fault or refreshes LastReported/Message on
// an existing one with the same (kind, subject, messageTemplate), so a
// recurring condition updates rather than duplicates. now is passed in
// rather than read from time.Now() so callers (and tests) control it
// explicitly.
func Report(existing *types.Fault, kind, subject, messageTemplate, message string, healthDelta int, now time.Time) *types.Fault {
	id := ID(kind, subject, messageTemplate)

	if existing != nil && existing.ID == id {
		existing.Message = message
		existing.HealthDelta = healthDelta
		existing.LastReported = now
		return existing
	}

	return &types.Fault{
		ID:              id,
		Kind:            kind,
		Subject:         subject,
		MessageTemplate: messageTemplate,
		Message:         message,
		HealthDelta:     healthDelta,
		Status:          types.FaultStatusNew,
		FirstReported:   now,
		LastReported:    now,
	}
}

// Acknowledge marks f acked at the given time. A no-op if already acked.
func Acknowledge(f *types.Fault, at time.Time) {
	if f.Status == types.FaultStatusAck {
		return
	}
	f.Status = types.FaultStatusAck
	f.AcknowledgedAt = at
}

// SortByLastReportedDesc sorts faults newest-first, the default listing
// order per original_source/flaskapi.py.
func SortByLastReportedDesc(faults []*types.Fault) {
	sort.Slice(faults, func(i, j int) bool {
		return faults[i].LastReported.After(faults[j].LastReported)
	})
}

// Age returns how long f has been outstanding as of now.
func Age(f *types.Fault, now time.Time) time.Duration {
	return now.Sub(f.FirstReported)
}

// String helper for log lines: "kind/subject".
func key(kind, subject string) string {
	return fmt.Sprintf("%s/%s", kind, subject)
}
