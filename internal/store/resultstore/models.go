package resultstore

import "gorm.io/datatypes"

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusRunning RunStatus = "running"
	RunStatusDone    RunStatus = "done"
	RunStatusFailed  RunStatus = "failed"
)

type RunModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Name          string         `gorm:"column:name;index"`
	Ticker        string         `gorm:"column:ticker"`
	Start         string         `gorm:"column:start"`
	End           string         `gorm:"column:end"`
	Status        RunStatus      `gorm:"column:status;index"`
	Error         string         `gorm:"column:error"`
	ConfigJSON    datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	InitialCap    float64        `gorm:"column:initial_capital"`
	FinalCap      float64        `gorm:"column:final_capital"`
	Profit        float64        `gorm:"column:profit"`
	Returns       float64        `gorm:"column:returns"`
	Operations    int            `gorm:"column:operations"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at"`
}

func (RunModel) TableName() string { return "runs" }

type PerformanceRowModel struct {
	ID            int64   `gorm:"column:id;primaryKey"`
	RunID         string  `gorm:"column:run_id;index:idx_perf_run_date,priority:1"`
	Date          string  `gorm:"column:date;index:idx_perf_run_date,priority:2"`
	Cash          float64 `gorm:"column:cash"`
	InvestedValue float64 `gorm:"column:invested_value"`
	TotalEquity   float64 `gorm:"column:total_equity"`
}

func (PerformanceRowModel) TableName() string { return "performance_rows" }

type OperationModel struct {
	ID         int64   `gorm:"column:id;primaryKey"`
	RunID      string  `gorm:"column:run_id;index"`
	Type       string  `gorm:"column:type"`
	CashAmount float64 `gorm:"column:cash_amount"`
	Ticker     string  `gorm:"column:ticker"`
	Price      float64 `gorm:"column:price"`
	Successful bool    `gorm:"column:successful"`
	Date       string  `gorm:"column:date;index"`
	Trigger    string  `gorm:"column:trigger"`
}

func (OperationModel) TableName() string { return "operations" }
