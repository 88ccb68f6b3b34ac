package repository

import (
	"errors"

	"github.com/xiaodian-next/internal/models"

	"gorm.io/gorm"
)

// ProductRepository 商品数据访问接口
type ProductRepository interface {
	GetByKey(key string) (*models.Product, error)
	ListTop(limit int) ([]models.Product, error)
	Create(product *models.Product) error
}

// GormProductRepository GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓库
func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// GetByKey 根据行项键获取商品
func (r *GormProductRepository) GetByKey(key string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Where("key = ?", key).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// ListTop 按行项键倒序取前 N 个上架商品
func (r *GormProductRepository) ListTop(limit int) ([]models.Product, error) {
	if limit <= 0 {
		return nil, nil
	}
	var products []models.Product
	err := r.db.Where("is_active = ?", true).
		Order("key desc").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

// Create 创建商品
func (r *GormProductRepository) Create(product *models.Product) error {
	return r.db.Create(product).Error
}
