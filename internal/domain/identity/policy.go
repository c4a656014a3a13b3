package identity

// ResolveRole applies the administrator allow-list. An allow-listed email
// always resolves to super_admin; anyone else keeps current.
func ResolveRole(email string, adminAllowList []string, current Role) Role {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return current
	}
	for _, admin := range adminAllowList {
		if NormalizeEmail(admin) == normalized {
			return RoleSuperAdmin
		}
	}
	return current
}

// LoginPath selects which audience a login attempt targets
type LoginPath string

const (
	LoginPathCustomer LoginPath = "customer"
	LoginPathAdmin    LoginPath = "admin"
)

// CheckLoginPath enforces the role rules of a login path.
// The admin path accepts only admin and super_admin. The customer path
// rejects administrators. Both reject inactive accounts.
func CheckLoginPath(u *User, path LoginPath) error {
	switch path {
	case LoginPathAdmin:
		if !u.IsAdmin() {
			return ErrAdminRequired
		}
		if !u.CanLogin() {
			return ErrAccountInactive
		}
	default:
		if u.IsAdmin() {
			return ErrUseAdminLogin
		}
		if !u.CanLogin() {
			return ErrAccountInactive
		}
	}
	return nil
}
