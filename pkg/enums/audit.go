package enums

import "fmt"

// AuditAction identifies what kind of event an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionLogin  AuditAction = "login"
	AuditActionLogout AuditAction = "logout"
	AuditActionExport AuditAction = "export"
)

var validAuditActions = []AuditAction{
	AuditActionCreate,
	AuditActionUpdate,
	AuditActionDelete,
	AuditActionLogin,
	AuditActionLogout,
	AuditActionExport,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}

// AuditEntity names the entity kind an audit entry refers to.
type AuditEntity string

const (
	AuditEntityPerson        AuditEntity = "person"
	AuditEntityInventoryItem AuditEntity = "inventory_item"
	AuditEntityUser          AuditEntity = "user"
)

var validAuditEntities = []AuditEntity{
	AuditEntityPerson,
	AuditEntityInventoryItem,
	AuditEntityUser,
}

// String implements fmt.Stringer.
func (e AuditEntity) String() string {
	return string(e)
}

// IsValid reports whether the value is a known AuditEntity.
func (e AuditEntity) IsValid() bool {
	for _, candidate := range validAuditEntities {
		if candidate == e {
			return true
		}
	}
	return false
}
