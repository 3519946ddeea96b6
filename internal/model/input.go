package model

import (
	"errors"
	"strings"
	"time"
)

// ContainerInput carries the user-editable container fields. On update, nil
// fields are left unchanged.
type ContainerInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Location    *string `json:"location,omitempty"`
	ImageURL    *string `json:"imageUrl,omitempty"`
}

// ItemInput carries the user-editable item fields. On update, nil fields are
// left unchanged and a pointer to the empty string clears the field.
type ItemInput struct {
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ContainerID   *string    `json:"containerId,omitempty"`
	ImageURL      *string    `json:"imageUrl,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	CategoryID    *string    `json:"categoryId,omitempty"`
	PurchasePrice *float64   `json:"purchasePrice,omitempty"`
	CurrentValue  *float64   `json:"currentValue,omitempty"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty"`
	Condition     *Condition `json:"condition,omitempty"`
	Warranty      *string    `json:"warranty,omitempty"`
	SerialNumber  *string    `json:"serialNumber,omitempty"`
	Model         *string    `json:"model,omitempty"`
	Brand         *string    `json:"brand,omitempty"`
}

type RegistrationInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Reason      string `json:"reason"`
}

type ReviewInput struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes,omitempty"`
}

type ShareInput struct {
	Email      string          `json:"email"`
	Permission SharePermission `json:"permission"`
}

func (in ContainerInput) ValidateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return errors.New("container name is required")
	}
	return nil
}

func (in ItemInput) ValidateCreate() error {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return errors.New("item name is required")
	}
	return nil
}

func (in RegistrationInput) Validate() error {
	if !strings.Contains(in.Email, "@") {
		return errors.New("a valid email is required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return errors.New("reason is required")
	}
	return nil
}

// NormalizeEmail is the canonical form emails are stored and matched in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Ptr is a small helper for building inputs.
func Ptr[T any](v T) *T {
	return &v
}
