package service

import (
	"context"
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venue-seating/internal/model"
)

// MaxAuditDetails bounds the JSON payload stored with an audit entry.
const MaxAuditDetails = 2000

// Auditor writes audit entries.  Writes are best-effort: a failure is
// logged and never reaches the caller.
type Auditor struct {
	store AuditStore
	now   Clock
	log   *logrus.Entry
}

func NewAuditor(store AuditStore, now Clock, log *logrus.Logger) *Auditor {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Auditor{store: store, now: now, log: log.WithField("component", "audit")}
}

// Record appends one entry.  seat may be nil for actions not tied to a
// single seat.
func (a *Auditor) Record(ctx context.Context, actor, action string, seat *model.SeatKey, payload interface{}) {
	if actor == "" {
		actor = "anon"
	}
	e := model.AuditEntry{At: a.now().UTC(), Who: actor, Action: action, Details: encodeDetails(payload)}
	if seat != nil {
		row, num := seat.Row, seat.Number
		e.Row, e.Seat = &row, &num
	}
	if err := a.store.Insert(ctx, e); err != nil {
		a.log.WithError(err).WithFields(logrus.Fields{"action": action, "actor": actor}).Warn("audit write failed")
	}
}

func encodeDetails(payload interface{}) string {
	if payload == nil {
		return "{}"
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return truncate(string(b), MaxAuditDetails)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
