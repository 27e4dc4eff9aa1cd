package repo

import (
	"context"
	"errors"

	"github.com/KNICEX/decision-agent/internal/entity"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type DecisionRepo interface {
	Create(ctx context.Context, decision entity.DecisionRecord) error
	UpdateStatus(ctx context.Context, id string, status string, errMsg string, orderId string) error
	List(ctx context.Context, limit int) ([]entity.DecisionRecord, error)
	FindByID(ctx context.Context, id string) (entity.DecisionRecord, error)
	MaxCycleID(ctx context.Context) (int64, error)
}

type decisionRepo struct {
	db *gorm.DB
}

func NewDecisionRepo(db *gorm.DB) DecisionRepo {
	return &decisionRepo{
		db: db,
	}
}

// Create 决策和 verdict 在同一事务内写入
func (r *decisionRepo) Create(ctx context.Context, decision entity.DecisionRecord) error {
	return r.db.WithContext(ctx).Create(&decision).Error
}

func (r *decisionRepo) UpdateStatus(ctx context.Context, id string, status string, errMsg string, orderId string) error {
	updates := map[string]any{"status": status}
	if errMsg != "" {
		updates["error"] = errMsg
	}
	if orderId != "" {
		updates["order_id"] = orderId
	}
	res := r.db.WithContext(ctx).Model(&entity.DecisionRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *decisionRepo) List(ctx context.Context, limit int) ([]entity.DecisionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var decisions []entity.DecisionRecord
	err := r.db.WithContext(ctx).
		Preload("Verdicts").
		Order("decided_at DESC").
		Order("cycle_id DESC").
		Limit(limit).
		Find(&decisions).Error
	if err != nil {
		return nil, err
	}
	return decisions, nil
}

func (r *decisionRepo) FindByID(ctx context.Context, id string) (entity.DecisionRecord, error) {
	var decision entity.DecisionRecord
	err := r.db.WithContext(ctx).Preload("Verdicts").Where("id = ?", id).First(&decision).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.DecisionRecord{}, ErrNotFound
	}
	if err != nil {
		return entity.DecisionRecord{}, err
	}
	return decision, nil
}

// MaxCycleID 重启后从已有最大周期号继续编号
func (r *decisionRepo) MaxCycleID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.WithContext(ctx).Model(&entity.DecisionRecord{}).Select("COALESCE(MAX(cycle_id), 0)").Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}
