package models

import (
	"time"

	"gorm.io/gorm"
)

// PromoCatalogEntry 促销目录条目，只携带指纹，不暴露明文码
type PromoCatalogEntry struct {
	Key       string `json:"key,omitempty"`
	MatchHash string `json:"match_hash"`
	Unit      string `json:"unit"` // '%' 或 'flat'
	Value     Money  `json:"value"`
}

// PromoApplication 已应用到购物车的促销码
type PromoApplication struct {
	PromoCatalogEntry
	Code string `json:"code"` // 用户输入的原始大小写
}

// Apply 由目录条目生成应用记录，去掉瞬态键并保留原始输入
func (e PromoCatalogEntry) Apply(code string) *PromoApplication {
	applied := e
	applied.Key = ""
	return &PromoApplication{
		PromoCatalogEntry: applied,
		Code:              code,
	}
}

// Promotion 促销码记录（仅存储指纹）
// 目录允许相同指纹出现多条，匹配时后者生效
type Promotion struct {
	ID        uint           `gorm:"primarykey" json:"id"`                       // 主键
	MatchHash string         `gorm:"index;not null" json:"match_hash"`           // 小写明文码的指纹
	Unit      string         `gorm:"type:varchar(10);not null" json:"unit"`      // 折扣单位（%/flat）
	Value     Money          `gorm:"type:decimal(20,2);not null" json:"value"`   // 折扣数值
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`     // 是否启用
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                    // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                             // 软删除时间
}

// TableName 指定表名
func (Promotion) TableName() string {
	return "promotions"
}
