package model

import "time"

// Audit actions written to audit_log.action.
const (
    ActionImportMaster = "import_master"
    ActionImportLayout = "import_layout"
    ActionHold         = "hold"
    ActionRelease      = "release"
    ActionExtend       = "extend"
    ActionReserve      = "reserve"
    ActionAdminFree    = "admin_free"
    ActionAdminUndo    = "admin_undo"
)

// AuditEntry is an append-only record of an action.  Row and Seat are
// nil for actions that do not concern a single seat (imports).
type AuditEntry struct {
    ID      uint64    // audit_log.id
    At      time.Time // audit_log.at
    Who     string    // audit_log.who
    Action  string    // audit_log.action
    Row     *string   // audit_log.row_label (nullable)
    Seat    *int      // audit_log.seat_number (nullable)
    Details string    // audit_log.details (JSON, at most 2000 bytes)
}
