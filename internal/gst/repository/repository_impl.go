package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgercraft/internal/gst/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ret *domain.GSTReturn) error {
	return db.WithContext(ctx).Create(ret).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, ret *domain.GSTReturn) error {
	return db.WithContext(ctx).
		Model(&domain.GSTReturn{}).
		Where("org_id = ? AND id = ?", ret.OrgID, ret.ID).
		Select("*").
		Omit("id", "org_id", "created_at").
		Updates(ret).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.GSTReturn, error) {
	var items []*domain.GSTReturn
	if err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (r *repo) FindByPeriod(ctx context.Context, db *gorm.DB, orgID snowflake.ID, quarter string, year int) (*domain.GSTReturn, error) {
	var items []*domain.GSTReturn
	if err := db.WithContext(ctx).
		Where("org_id = ? AND quarter = ? AND year = ?", orgID, quarter, year).
		Limit(1).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, year int) ([]*domain.GSTReturn, error) {
	stmt := db.WithContext(ctx).Where("org_id = ?", orgID)
	if year > 0 {
		stmt = stmt.Where("year = ?", year)
	}
	var items []*domain.GSTReturn
	if err := stmt.Order("year desc, quarter desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
