package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleDispatcher Role = "dispatcher"
	RoleViewer     Role = "viewer"
)

// Actions checked by HasPermission.
const (
	ActionViewTrips    = "view_trips"
	ActionCreateTrip   = "create_trip"
	ActionUpdateTrip   = "update_trip"
	ActionCloseTrip    = "close_trip"
	ActionViewReports  = "view_reports"
	ActionExportReport = "export_reports"
	ActionManageUsers  = "manage_users"
)

// User represents a user in the system
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Exp      int64  `json:"exp"`
}

// IsValidRole reports whether role is one of the four known roles.
func IsValidRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok || role == RoleAdmin
}

// rolePermissions lists what each role below admin may do. Admin may do
// everything.
var rolePermissions = map[Role][]string{
	RoleManager: {
		ActionViewTrips, ActionCreateTrip, ActionUpdateTrip, ActionCloseTrip,
		ActionViewReports, ActionExportReport,
	},
	RoleDispatcher: {ActionViewTrips, ActionCreateTrip, ActionUpdateTrip, ActionViewReports},
	RoleViewer:     {ActionViewTrips, ActionViewReports},
}

// HasPermission reports whether the role may perform action.
func (r Role) HasPermission(action string) bool {
	if r == RoleAdmin {
		return true
	}
	for _, a := range rolePermissions[r] {
		if a == action {
			return true
		}
	}
	return false
}
