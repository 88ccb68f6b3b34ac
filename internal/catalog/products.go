package catalog

import (
	"github.com/xiaodian-next/internal/constants"
	"github.com/xiaodian-next/internal/models"
	"github.com/xiaodian-next/internal/repository"
)

// Products 商品目录查询
type Products struct {
	productRepo repository.ProductRepository
}

// NewProducts 创建商品目录查询
func NewProducts(productRepo repository.ProductRepository) *Products {
	return &Products{productRepo: productRepo}
}

// List 取移动端首屏商品：按行项键倒序的前 100 个
func (p *Products) List() ([]models.Product, error) {
	return p.productRepo.ListTop(constants.ProductListLimit)
}

// GetByKey 根据行项键获取单个商品
func (p *Products) GetByKey(key string) (*models.Product, error) {
	return p.productRepo.GetByKey(key)
}
