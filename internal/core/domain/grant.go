package domain

import "strings"

// Operation names protected by the access-control core itself.
const (
	OpUpdateAccess     = "update_access"
	OpViewAccess       = "view_access"
	OpUpdatePassword   = "update_password"
	OpUpdateUserStatus = "update_user_status"
	OpViewUsers        = "view_users"
)

// Operation names checked by the downstream record-store routes.
const (
	OpCreateCustomer = "create_customer"
	OpAllCustomer    = "all_customer"
	OpUpdateCustomer = "update_customer"
	OpDeleteCustomer = "delete_customer"
	OpCreateContact  = "create_contact"
	OpAllContact     = "all_contact"
	OpUpdateContact  = "update_contact"
	OpDeleteContact  = "delete_contact"
)

// MaxOperationLength matches the api_name column width.
const MaxOperationLength = 100

// Grant binds a user to a named operation.
type Grant struct {
	UserID    int64  `json:"user_id"`
	Operation string `json:"api_name"`
}

// Catalog lists every operation name the system knows about. The bootstrap
// super-administrator receives all of them.
func Catalog() []string {
	return []string{
		OpUpdateAccess, OpViewAccess, OpUpdatePassword, OpUpdateUserStatus, OpViewUsers,
		OpCreateCustomer, OpAllCustomer, OpUpdateCustomer, OpDeleteCustomer,
		OpCreateContact, OpAllContact, OpUpdateContact, OpDeleteContact,
	}
}

// NormalizeOperations trims names, drops empty ones and removes duplicates.
// First occurrence order is kept.
func NormalizeOperations(ops []string) []string {
	out := make([]string, 0, len(ops))
	seen := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		if _, dup := seen[op]; dup {
			continue
		}
		seen[op] = struct{}{}
		out = append(out, op)
	}
	return out
}
