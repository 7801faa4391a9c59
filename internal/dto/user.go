package dto

import "github.com/noah-isme/lms-api/internal/models"

// UpdateUserRequest carries profile changes. Role and Active are honoured
// for admins only; passwords are never changed through this payload.
type UpdateUserRequest struct {
	FullName       *string          `json:"full_name" validate:"omitempty,min=1,max=120"`
	PhoneNumber    *string          `json:"phone_number" validate:"omitempty,max=32"`
	Bio            *string          `json:"bio" validate:"omitempty,max=2000"`
	ProfilePicture *string          `json:"profile_picture" validate:"omitempty,url"`
	Role           *models.UserRole `json:"role" validate:"omitempty,oneof=student teacher admin"`
	Active         *bool            `json:"active"`
}
