package service

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/venue-seating/internal/model"
)

func TestAuditorRecord(t *testing.T) {
	db := newMemDB("A", 1, 1)
	log, _ := test.NewNullLogger()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.FixedZone("IDT", 3*3600))
	a := NewAuditor(memAudit{db}, func() time.Time { return at }, log)

	key := model.SeatKey{Row: "A", Number: 1}
	a.Record(context.Background(), "", model.ActionHold, &key, map[string]int{"size": 1})
	a.Record(context.Background(), "x@example.org", model.ActionImportMaster, nil, nil)

	require.Len(t, db.audit, 2)
	first := db.audit[0]
	assert.Equal(t, "anon", first.Who)
	assert.Equal(t, at.UTC(), first.At)
	require.NotNil(t, first.Row)
	assert.Equal(t, "A", *first.Row)
	assert.Equal(t, 1, *first.Seat)
	assert.Equal(t, `{"size":1}`, first.Details)

	assert.Nil(t, db.audit[1].Seat)
	assert.Equal(t, "{}", db.audit[1].Details)
}

func TestAuditDetailsAreBounded(t *testing.T) {
	long := strings.Repeat("ש", MaxAuditDetails)
	out := encodeDetails(map[string]string{"name": long})
	assert.LessOrEqual(t, len(out), MaxAuditDetails)
	assert.True(t, utf8.ValidString(out))

	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2), "never split a rune")
}
