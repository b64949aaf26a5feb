package repository

import (
    "context"
    "database/sql"
    "errors"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/venue-seating/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() {
        assert.NoError(t, mock.ExpectationsWereMet())
        db.Close()
    })
    return db, mock
}

var holdCols = []string{"row_label", "seat_number", "held_by", "block_id", "expires_at", "created_at"}

func TestMapError(t *testing.T) {
    assert.ErrorIs(t, mapError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), ErrConflict)
    assert.ErrorIs(t, mapError(&mysql.MySQLError{Number: 1452, Message: "fk"}), ErrUnknownSeat)
    other := errors.New("bad connection")
    assert.Same(t, other, mapError(other))
    assert.NoError(t, mapError(nil))
}

func TestPlaceholders(t *testing.T) {
    assert.Equal(t, "", placeholders(0))
    assert.Equal(t, "?", placeholders(1))
    assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestHoldInsertSucceeds(t *testing.T) {
    db, mock := newMock(t)
    now := time.Now()
    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO seat_holds")).
        WithArgs("A", 4, "me@example.org", "blk", sqlmock.AnyArg(), sqlmock.AnyArg(), "A", 4).
        WillReturnResult(sqlmock.NewResult(0, 1))

    err := NewSeatHoldRepo(db).Insert(context.Background(), model.Hold{
        RowLabel: "A", SeatNumber: 4, HeldBy: "me@example.org", BlockID: "blk",
        ExpiresAt: now.Add(5 * time.Minute), CreatedAt: now,
    })
    assert.NoError(t, err)
}

func TestHoldInsertConflicts(t *testing.T) {
    cases := []struct {
        name string
        exec func(*sqlmock.ExpectedExec)
        want error
    }{
        {"reserved seat", func(e *sqlmock.ExpectedExec) { e.WillReturnResult(sqlmock.NewResult(0, 0)) }, ErrConflict},
        {"already held", func(e *sqlmock.ExpectedExec) { e.WillReturnError(&mysql.MySQLError{Number: 1062}) }, ErrConflict},
        {"unknown seat", func(e *sqlmock.ExpectedExec) { e.WillReturnError(&mysql.MySQLError{Number: 1452}) }, ErrUnknownSeat},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            db, mock := newMock(t)
            tc.exec(mock.ExpectExec("INSERT INTO seat_holds"))
            err := NewSeatHoldRepo(db).Insert(context.Background(), model.Hold{RowLabel: "A", SeatNumber: 1})
            assert.ErrorIs(t, err, tc.want)
        })
    }
}

func TestDeleteExpiredReturnsFreedHolds(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("FROM seat_holds WHERE expires_at <= ? FOR UPDATE")).
        WithArgs(now).
        WillReturnRows(sqlmock.NewRows(holdCols).
            AddRow("B", 2, "x@example.org", "blk", now.Add(-time.Second), now.Add(-time.Hour)))
    mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds WHERE expires_at <= ?")).
        WithArgs(now).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    got, err := NewSeatHoldRepo(db).DeleteExpired(context.Background(), now)
    require.NoError(t, err)
    require.Len(t, got, 1)
    assert.Equal(t, "B", got[0].RowLabel)
    assert.Equal(t, 2, got[0].SeatNumber)
}

func TestDeleteExpiredNothingToDo(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectQuery("FROM seat_holds").WillReturnRows(sqlmock.NewRows(holdCols))
    mock.ExpectRollback()

    got, err := NewSeatHoldRepo(db).DeleteExpired(context.Background(), time.Now())
    require.NoError(t, err)
    assert.Empty(t, got)
}

func TestDeleteBlockScopesToBlock(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds WHERE row_label = ? AND seat_number IN (?, ?) AND block_id = ?")).
        WithArgs("C", 3, 4, "blk-1").
        WillReturnResult(sqlmock.NewResult(0, 2))

    n, err := NewSeatHoldRepo(db).DeleteBlock(context.Background(), "blk-1", "C", []int{3, 4})
    require.NoError(t, err)
    assert.EqualValues(t, 2, n)
}

func TestExtendOnlyOwnActiveHolds(t *testing.T) {
    db, mock := newMock(t)
    now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
    until := now.Add(5 * time.Minute)
    mock.ExpectBegin()
    mock.ExpectQuery(regexp.QuoteMeta("AND held_by = ? AND expires_at > ? FOR UPDATE")).
        WithArgs("A", 1, 2, "me@example.org", now).
        WillReturnRows(sqlmock.NewRows(holdCols).AddRow("A", 1, "me@example.org", "blk", now.Add(time.Minute), now))
    mock.ExpectExec(regexp.QuoteMeta("UPDATE seat_holds SET expires_at = ?")).
        WithArgs(until, "A", 1, 2, "me@example.org", now).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    got, err := NewSeatHoldRepo(db).Extend(context.Background(), "A", []int{1, 2}, "me@example.org", now, until)
    require.NoError(t, err)
    require.Len(t, got, 1)
    assert.Equal(t, until, got[0].ExpiresAt)
}

func TestReserveBlockCommitsAndClearsHolds(t *testing.T) {
    db, mock := newMock(t)
    now := time.Now()
    mock.ExpectBegin()
    mock.ExpectExec("INSERT INTO seat_reservations").WithArgs("A", 1, "Levi, Dana", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO seat_reservations").WithArgs("A", 2, "Levi, Dana", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectQuery(regexp.QuoteMeta("SELECT row_label, seat_number, held_by, block_id, expires_at, created_at FROM seat_holds WHERE row_label = ? AND seat_number IN (?, ?) AND held_by = ? FOR UPDATE")).
        WithArgs("A", 1, 2, "dana@example.org").
        WillReturnRows(sqlmock.NewRows(holdCols).
            AddRow("A", 1, "dana@example.org", "blk", now, now).
            AddRow("A", 2, "dana@example.org", "blk", now, now))
    mock.ExpectExec(regexp.QuoteMeta("DELETE FROM seat_holds WHERE row_label = ?")).WillReturnResult(sqlmock.NewResult(0, 2))
    mock.ExpectCommit()

    holds := NewSeatHoldRepo(db)
    cleared, err := NewReservationRepo(db, holds).ReserveBlock(context.Background(), []model.Reservation{
        {RowLabel: "A", SeatNumber: 1, ReservedBy: "Levi, Dana", ReservedAt: now},
        {RowLabel: "A", SeatNumber: 2, ReservedBy: "Levi, Dana", ReservedAt: now},
    }, "dana@example.org")
    require.NoError(t, err)
    assert.Len(t, cleared, 2)
}

func TestReserveBlockRollsBackOnConflict(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectExec("INSERT INTO seat_reservations").WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec("INSERT INTO seat_reservations").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "dup"})
    mock.ExpectRollback()

    _, err := NewReservationRepo(db, NewSeatHoldRepo(db)).ReserveBlock(context.Background(), []model.Reservation{
        {RowLabel: "A", SeatNumber: 1, ReservedBy: "x"},
        {RowLabel: "A", SeatNumber: 2, ReservedBy: "x"},
        {RowLabel: "A", SeatNumber: 3, ReservedBy: "x"},
    }, "x@example.org")
    require.Error(t, err)
    assert.ErrorIs(t, err, ErrConflict)
    var se *SeatError
    require.ErrorAs(t, err, &se)
    assert.Equal(t, 2, se.Seat)
}

func TestDeleteLatestNotFound(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectBegin()
    mock.ExpectQuery("ORDER BY reserved_at DESC").WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number", "reserved_by", "reserved_at"}))
    mock.ExpectRollback()

    _, err := NewReservationRepo(db, nil).DeleteLatest(context.Background())
    assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSeatReturnsRemoved(t *testing.T) {
    db, mock := newMock(t)
    at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
    mock.ExpectBegin()
    mock.ExpectQuery("WHERE row_label = \\? AND seat_number = \\? FOR UPDATE").WithArgs("D", 7).
        WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number", "reserved_by", "reserved_at"}).AddRow("D", 7, "Cohen, Ari", at))
    mock.ExpectExec("DELETE FROM seat_reservations").WithArgs("D", 7).WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    got, err := NewReservationRepo(db, nil).Delete(context.Background(), "D", 7)
    require.NoError(t, err)
    assert.Equal(t, "Cohen, Ari", got.ReservedBy)
}

func TestSearchByNameEscapesPattern(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectQuery("LOWER\\(reserved_by\\) LIKE \\?").WithArgs(`%50\%%`).
        WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number", "reserved_by", "reserved_at"}))

    got, err := NewReservationRepo(db, nil).SearchByName(context.Background(), " 50% ")
    require.NoError(t, err)
    assert.Empty(t, got)
}

func TestCatalogUpsertBatches(t *testing.T) {
    db, mock := newMock(t)
    entries := make([]model.CatalogEntry, ImportBatchSize+1)
    for i := range entries {
        entries[i] = model.CatalogEntry{RowLabel: "A", SeatNumber: i + 1}
    }
    mock.ExpectExec("INSERT INTO seat_catalog").WillReturnResult(sqlmock.NewResult(0, ImportBatchSize))
    mock.ExpectExec("INSERT INTO seat_catalog").WillReturnResult(sqlmock.NewResult(0, 1))

    n, err := NewCatalogRepo(db).UpsertBulk(context.Background(), entries)
    require.NoError(t, err)
    assert.Equal(t, ImportBatchSize+1, n)
}

func TestCatalogListReadsSection(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectQuery("FROM seat_catalog").WillReturnRows(sqlmock.NewRows([]string{"row_label", "seat_number", "section"}).
        AddRow("A", 1, "Orchestra").
        AddRow("A", 2, nil))

    got, err := NewCatalogRepo(db).List(context.Background())
    require.NoError(t, err)
    require.Len(t, got, 2)
    require.NotNil(t, got[0].Section)
    assert.Equal(t, "Orchestra", *got[0].Section)
    assert.Nil(t, got[1].Section)
}

func TestAuditListRecentNullableColumns(t *testing.T) {
    db, mock := newMock(t)
    at := time.Now()
    mock.ExpectQuery("FROM audit_log ORDER BY at DESC").WithArgs(2000).
        WillReturnRows(sqlmock.NewRows([]string{"id", "at", "who", "action", "row_label", "seat_number", "details"}).
            AddRow(2, at, "boss@example.org", "import_master", nil, nil, `{"seats":10}`).
            AddRow(1, at, "me@example.org", "hold", "A", 3, `{}`))

    got, err := NewAuditRepo(db).ListRecent(context.Background(), 0)
    require.NoError(t, err)
    require.Len(t, got, 2)
    assert.Nil(t, got[0].Row)
    require.NotNil(t, got[1].Seat)
    assert.Equal(t, 3, *got[1].Seat)
}

func TestLayoutUpsert(t *testing.T) {
    db, mock := newMock(t)
    mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE x = VALUES(x)")).
        WithArgs("A", 1, 10.5, 20.0).
        WillReturnResult(sqlmock.NewResult(0, 1))

    n, err := NewLayoutRepo(db).UpsertBulk(context.Background(), []model.Coordinate{{RowLabel: "A", SeatNumber: 1, X: 10.5, Y: 20}})
    require.NoError(t, err)
    assert.Equal(t, 1, n)
}
