package model

import "time"

// Status is the account state shown to a signed-in user.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusAdmin    Status = "admin"
)

type SharePermission string

const (
	PermissionView  SharePermission = "view"
	PermissionEdit  SharePermission = "edit"
	PermissionAdmin SharePermission = "admin"
)

// CanEdit reports whether the permission allows changing a container and its items.
func (p SharePermission) CanEdit() bool {
	return p == PermissionEdit || p == PermissionAdmin
}

func (p SharePermission) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionAdmin:
		return true
	}
	return false
}

type Condition string

const (
	ConditionNew       Condition = "new"
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

type Container struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContainerWithSharing is a container as listed for one user: either owned,
// or shared with them by its owner.
type ContainerWithSharing struct {
	Container
	IsShared        bool            `json:"isShared,omitempty"`
	SharedByName    string          `json:"sharedByName,omitempty"`
	SharePermission SharePermission `json:"sharePermission,omitempty"`
}

// Item is one cataloged thing inside a container. ImageURL holds an inline
// data URL, which is what makes item lists large.
type Item struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	ContainerID   string     `json:"containerId"`
	ImageURL      string     `json:"imageUrl,omitempty"`
	Tags          []string   `json:"tags"`
	CategoryID    string     `json:"categoryId,omitempty"`
	PurchasePrice *float64   `json:"purchasePrice,omitempty"`
	CurrentValue  *float64   `json:"currentValue,omitempty"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty"`
	Condition     Condition  `json:"condition,omitempty"`
	Warranty      string     `json:"warranty,omitempty"`
	SerialNumber  string     `json:"serialNumber,omitempty"`
	Model         string     `json:"model,omitempty"`
	Brand         string     `json:"brand,omitempty"`
	UserID        string     `json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type UserProfile struct {
	UID         string     `json:"uid"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	Status      Status     `json:"status"`
	IsAdmin     bool       `json:"isAdmin,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type RegistrationRequest struct {
	ID          string     `json:"id"`
	UID         string     `json:"uid,omitempty"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName,omitempty"`
	Reason      string     `json:"reason"`
	Status      Status     `json:"status"`
	RequestedAt time.Time  `json:"requestedAt"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy  string     `json:"reviewedBy,omitempty"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type ContainerShare struct {
	ID              string          `json:"id"`
	ContainerID     string          `json:"containerId"`
	OwnerID         string          `json:"ownerId"`
	SharedWithID    string          `json:"sharedWithId"`
	SharedWithEmail string          `json:"sharedWithEmail"`
	SharedWithName  string          `json:"sharedWithName,omitempty"`
	SharedByName    string          `json:"sharedByName,omitempty"`
	Permission      SharePermission `json:"permission"`
	SharedAt        time.Time       `json:"sharedAt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
