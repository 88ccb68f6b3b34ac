package repository

import (
	"github.com/xiaodian-next/internal/models"

	"gorm.io/gorm"
)

// PromotionRepository 促销码数据访问接口
type PromotionRepository interface {
	ListActive() ([]models.Promotion, error)
	Create(promotion *models.Promotion) error
}

// GormPromotionRepository GORM 实现
type GormPromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销码仓库
func NewPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

// ListActive 获取全部启用的促销码，按主键升序。
// 顺序即目录顺序：指纹重复时，扫描中靠后的记录生效。
func (r *GormPromotionRepository) ListActive() ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := r.db.Where("is_active = ?", true).
		Order("id asc").
		Find(&promotions).Error
	if err != nil {
		return nil, err
	}
	return promotions, nil
}

// Create 创建促销码
func (r *GormPromotionRepository) Create(promotion *models.Promotion) error {
	return r.db.Create(promotion).Error
}
