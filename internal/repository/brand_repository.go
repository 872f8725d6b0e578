// Package repository 包含了所有与数据库交互的逻辑。
package repository

import (
	"brandmonitor-go/internal/model"

	"gorm.io/gorm"
)

// BrandRepository 接口定义了品牌读模型的数据操作方法。
// 品牌的维护属于外部协作方，这里只消费名称与关键词集合。
type BrandRepository interface {
	Create(brand *model.Brand) error
	FindByID(id uint) (*model.Brand, error)
	FindAll() ([]model.Brand, error)
}

type brandRepository struct {
	db *gorm.DB
}

// NewBrandRepository 创建一个新的 BrandRepository 实例。
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &brandRepository{db: db}
}

// Create 在数据库中插入一个新的品牌记录。
func (r *brandRepository) Create(brand *model.Brand) error {
	return r.db.Create(brand).Error
}

// FindByID 根据品牌 ID 查找品牌及其受监控关键词。
func (r *brandRepository) FindByID(id uint) (*model.Brand, error) {
	var brand model.Brand
	err := r.db.First(&brand, id).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// FindAll 从数据库中检索所有品牌记录。
func (r *brandRepository) FindAll() ([]model.Brand, error) {
	var brands []model.Brand
	err := r.db.Find(&brands).Error
	return brands, err
}
