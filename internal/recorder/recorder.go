package recorder

import "OdysseyFarmer/internal/model"

// Recorder persists the audit trail for later analysis. It is write-only:
// nothing is read back into the scheduler on restart.
type Recorder interface {
	RecordOutcome(entry *model.LogEntry) error
	RecordBalances(readings []model.BalanceReading) error
	Close() error
}
