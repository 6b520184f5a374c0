package recorder

import "OdysseyFarmer/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordOutcome(_ *model.LogEntry) error            { return nil }
func (n *NoopRecorder) RecordBalances(_ []model.BalanceReading) error { return nil }
func (n *NoopRecorder) Close() error                                  { return nil }
