package resultstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists backtest runs, their audit trails, and daily
// performance rows.
type Store struct {
	db *gorm.DB
}

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("result store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewFromDB(db)
}

func NewFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	models := []interface{}{
		&RunModel{},
		&PerformanceRowModel{},
		&OperationModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateRun(ctx context.Context, run *RunModel) error {
	now := time.Now().Unix()
	run.CreatedAtUnix = now
	run.UpdatedAtUnix = now
	if run.Status == "" {
		run.Status = RunStatusPending
	}
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg string) error {
	return s.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":     status,
		"error":      errMsg,
		"updated_at": time.Now().Unix(),
	}).Error
}

// FinishRun marks a run done and records its final figures.
func (s *Store) FinishRun(ctx context.Context, id string, finalCap, profit, returns float64, operations int) error {
	return s.db.WithContext(ctx).Model(&RunModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":        RunStatusDone,
		"final_capital": finalCap,
		"profit":        profit,
		"returns":       returns,
		"operations":    operations,
		"updated_at":    time.Now().Unix(),
	}).Error
}

func (s *Store) GetRun(ctx context.Context, id string) (*RunModel, error) {
	var run RunModel
	if err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []RunModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

func (s *Store) SaveOperations(ctx context.Context, ops []OperationModel) error {
	if len(ops) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(ops, 200).Error
}

func (s *Store) ListOperations(ctx context.Context, runID string) ([]OperationModel, error) {
	var ops []OperationModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("date ASC, id ASC").Find(&ops).Error
	return ops, err
}

func (s *Store) SavePerformance(ctx context.Context, rows []PerformanceRowModel) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 500).Error
}

func (s *Store) ListPerformance(ctx context.Context, runID string) ([]PerformanceRowModel, error) {
	var rows []PerformanceRowModel
	err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("date ASC").Find(&rows).Error
	return rows, err
}
