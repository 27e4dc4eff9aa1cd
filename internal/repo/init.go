package repo

import (
	"github.com/KNICEX/decision-agent/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.DecisionRecord{}, &entity.VerdictRecord{})
}
