package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the local mirror of an identity provider account
type User struct {
	BaseModel
	ExternalID string `gorm:"type:varchar(255);uniqueIndex:idx_users_external_id;not null" json:"externalId"`
	Email      string `gorm:"type:varchar(255);not null" json:"email" validate:"required,email"`
	Role       Role   `gorm:"type:varchar(20);not null;default:VIEWER" json:"role"`
}

// UserResponse is used for API responses
type UserResponse struct {
	ID         uuid.UUID `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ToResponse converts User to UserResponse
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Role:       u.Role,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}
