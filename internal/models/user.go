package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// ReservedAdminID identifies the administrator that must always exist.
const (
	ReservedAdminID       = "admin-001"
	ReservedAdminUsername = "admin"
)

// User is an account row in the Users sheet. Passwords are stored as entered;
// the sheet is shared with other tooling that reads them verbatim.
type User struct {
	ID         string   `json:"id" mapstructure:"id"`
	Username   string   `json:"username" mapstructure:"username"`
	Password   string   `json:"password" mapstructure:"password"`
	Name       string   `json:"name" mapstructure:"name"`
	Role       UserRole `json:"role" mapstructure:"role"`
	ClassGrade string   `json:"classGrade" mapstructure:"classGrade"`
}

// ReservedAdmin returns the built-in administrator account.
func ReservedAdmin() User {
	return User{
		ID:         ReservedAdminID,
		Username:   ReservedAdminUsername,
		Password:   "admin",
		Name:       "Administrator",
		Role:       RoleAdmin,
		ClassGrade: "",
	}
}

// IsReservedAdmin reports whether u is the built-in administrator.
func (u User) IsReservedAdmin() bool {
	return u.ID == ReservedAdminID || u.Username == ReservedAdminUsername
}

// UserView is the password-free projection returned by the API.
type UserView struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Name       string   `json:"name"`
	Role       UserRole `json:"role"`
	ClassGrade string   `json:"classGrade"`
}

// View strips the password.
func (u User) View() UserView {
	return UserView{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role, ClassGrade: u.ClassGrade}
}

// UpsertUserRequest is the admin payload for creating or editing an account.
type UpsertUserRequest struct {
	ID         string   `json:"id" mapstructure:"id"`
	Username   string   `json:"username" mapstructure:"username" validate:"required"`
	Password   string   `json:"password" mapstructure:"password" validate:"required"`
	Name       string   `json:"name" mapstructure:"name" validate:"required"`
	Role       UserRole `json:"role" mapstructure:"role" validate:"required,oneof=admin teacher student"`
	ClassGrade string   `json:"classGrade" mapstructure:"classGrade"`
}
