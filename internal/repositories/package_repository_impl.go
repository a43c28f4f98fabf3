package repositories

import (
	"context"
	stderrors "errors"
	"fmt"

	"perka/internal/errors"
	"perka/internal/models"

	"gorm.io/gorm"
)

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) GetByID(ctx context.Context, id uint) (*models.TopupPackage, error) {
	var pkg models.TopupPackage
	err := r.db.WithContext(ctx).
		Where("id = ? AND active = ?", id, true).
		First(&pkg).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrPackageNotFound
		}
		return nil, fmt.Errorf("failed to get topup package: %w", err)
	}
	return &pkg, nil
}

func (r *packageRepository) ListActive(ctx context.Context) ([]models.TopupPackage, error) {
	var pkgs []models.TopupPackage
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("amount ASC").
		Find(&pkgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list topup packages: %w", err)
	}
	return pkgs, nil
}
