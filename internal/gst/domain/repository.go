package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ret *GSTReturn) error
	Update(ctx context.Context, db *gorm.DB, ret *GSTReturn) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*GSTReturn, error)
	FindByPeriod(ctx context.Context, db *gorm.DB, orgID snowflake.ID, quarter string, year int) (*GSTReturn, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, year int) ([]*GSTReturn, error)
}
