package repository

import (
	"errors"

	"github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/entity"
	domainRepo "github.com/SerhiiMaksymiv/kneu-book-tennis-court/internal/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type authTokenRepository struct{}

func NewAuthTokenRepository() domainRepo.AuthTokenRepository {
	return &authTokenRepository{}
}

func (r *authTokenRepository) Get(db *gorm.DB) (*entity.AuthToken, error) {
	var token entity.AuthToken
	err := db.Where("id = ?", entity.AuthTokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// Save replaces the singleton credential row wholesale.
func (r *authTokenRepository) Save(db *gorm.DB, token *entity.AuthToken) error {
	token.ID = entity.AuthTokenID
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(token).Error
}
