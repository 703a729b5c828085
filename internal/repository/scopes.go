package repository

import (
	"errors"

	"gorm.io/gorm"

	"shopease/pkg/utils"
)

// Paginate limits a query to one page; page is 1-based
func Paginate(page, pageSize int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page < 1 {
			page = 1
		}
		if pageSize < 1 {
			pageSize = 10
		}
		return db.Offset((page - 1) * pageSize).Limit(pageSize)
	}
}

// translate maps a gorm error onto the application taxonomy
func translate(err error, notFound *utils.AppError, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return utils.Persistence(err, "failed to "+op)
}
