package repository

import (
	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"

	"gorm.io/gorm"
)

type AuthTokenRepository interface {
	Get(db *gorm.DB) (*entity.AuthToken, error)
	Save(db *gorm.DB, token *entity.AuthToken) error
}
