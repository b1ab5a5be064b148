package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeLowStockScan triggers a scan for products below reorder point.
	TaskTypeLowStockScan = "ledger:lowstock"
	// TaskTypeKPISnapshot records periodic business metric snapshots.
	TaskTypeKPISnapshot = "kpi:snapshot"
)

// LowStockScanPayload carries scheduling metadata for a low-stock scan.
type LowStockScanPayload struct {
	CompanyID    int64     `json:"company_id"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for a low-stock scan.
func NewLowStockScanTask(companyID int64, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{CompanyID: companyID, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// KPISnapshotPayload scopes one snapshot run.
type KPISnapshotPayload struct {
	CompanyID int64  `json:"company_id"`
	Period    string `json:"period"`
}

// NewKPISnapshotTask constructs an Asynq task for a KPI snapshot.
func NewKPISnapshotTask(companyID int64, period string) (*asynq.Task, error) {
	body, err := json.Marshal(KPISnapshotPayload{CompanyID: companyID, Period: period})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeKPISnapshot, body, asynq.Queue(QueueDefault)), nil
}
