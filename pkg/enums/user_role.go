package enums

import "fmt"

// UserRole represents an account's access level.
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleReadOnly UserRole = "read_only"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleReadOnly,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanMutate reports whether the role may perform write operations.
func (r UserRole) CanMutate() bool {
	return r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
