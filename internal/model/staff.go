package model

import (
	"github.com/google/uuid"
)

type Staff struct {
	Base
	BusinessID uuid.UUID `db:"business_id" json:"business_id"`
	Name       string    `db:"name" json:"name"`
	Role       string    `db:"role" json:"role,omitempty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
}

type CreateStaffRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	Role string `json:"role" validate:"max=100"`
}

type UpdateStaffRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=200"`
	Role     *string `json:"role" validate:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}
