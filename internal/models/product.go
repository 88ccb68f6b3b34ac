package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                     // 主键
	Key       string         `gorm:"uniqueIndex;not null" json:"key"`          // 行项键
	Title     string         `gorm:"not null" json:"title"`                    // 标题
	SKU       string         `gorm:"column:sku;not null" json:"sku"`           // 货号
	Price     Money          `gorm:"type:decimal(20,2);not null" json:"price"` // 单价
	Unit      string         `gorm:"type:varchar(20)" json:"unit"`             // 计价单位
	Thumbnail *string        `json:"thumbnail"`                                // 缩略图
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`   // 是否上架
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                  // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                  // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                           // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// Snapshot 生成加购用的展示快照
func (p *Product) Snapshot() ItemSnapshot {
	return ItemSnapshot{
		Title:     p.Title,
		SKU:       p.SKU,
		Price:     p.Price,
		Unit:      p.Unit,
		Thumbnail: p.Thumbnail,
	}
}
