package models

// Account roles, ordered by privilege.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Account is the persisted user record. A single record carries the whole
// lifecycle: email-only rows exist mid-registration, completed rows hold a
// password hash or a Google subject (or both, after linking).
type Account struct {
	Base
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string  `json:"-"` // empty for federation-only accounts
	Name         string  `json:"name"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`

	Role    string `gorm:"default:'user'" json:"role"` // user, admin, superadmin
	IsAdmin bool   `gorm:"default:false" json:"is_admin"`

	IsActive      bool `gorm:"default:true" json:"is_active"`
	EmailVerified bool `gorm:"default:false" json:"email_verified"`

	// One-time tokens. A token and its expiry are always set and cleared
	// together; expiries are Unix seconds, 0 when no token is outstanding.
	RegistrationToken   string `gorm:"index" json:"-"`
	RegistrationExpires int64  `json:"-"`
	VerifyToken         string `gorm:"index" json:"-"`
	VerifyExpires       int64  `json:"-"`
	ResetToken          string `gorm:"index" json:"-"`
	ResetExpires        int64  `json:"-"`

	// RegisteredAt is set when the name/password completion step finishes.
	// Nil means the two-phase signup was never completed.
	RegisteredAt *int64 `json:"registered_at,omitempty"`
	LastLoginAt  *int64 `json:"last_login_at,omitempty"`
}

func (Account) TableName() string {
	return "accounts"
}

// Registered reports whether the account finished signup, either by
// completing the two-phase flow or by arriving fully formed via Google.
func (a *Account) Registered() bool {
	return a.RegisteredAt != nil
}

// RoleIsAdmin reports whether a role carries admin privileges. Kept in one
// place so the IsAdmin flag and the role column cannot drift.
func RoleIsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuperadmin
}

// ValidRole reports whether role is one of the known role names.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin || role == RoleSuperadmin
}
