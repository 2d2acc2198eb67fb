package model

import "time"

// Staff roles allowed to use the back-office API.
const (
    StaffRoleOperator = "OPERATOR"
    StaffRoleAdmin    = "ADMIN"
)

// Staff represents a back-office account as stored in the `staff`
// table.  Guides, assistants and OP members are referenced by their
// staff id from tours and allocation ledgers; only accounts with an
// operator or admin role may sign in.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login email.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password.
//  Role         – OPERATOR, ADMIN, GUIDE or OP.
//  IsActive     – whether the account may sign in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Staff struct {
    ID           uint64    // staff.id
    Email        string    // staff.email
    Name         string    // staff.name
    PasswordHash string    // staff.password_hash
    Role         string    // staff.role
    IsActive     bool      // staff.is_active
    CreatedAt    time.Time // staff.created_at
    UpdatedAt    time.Time // staff.updated_at
}

// CanOperate reports whether the account may use the admin API.
func (s Staff) CanOperate() bool {
    return s.IsActive && (s.Role == StaffRoleOperator || s.Role == StaffRoleAdmin)
}
