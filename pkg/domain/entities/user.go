package entities

// Role is the workflow role a user holds at the backend
type Role string

const (
	RoleRequester         Role = "PEMINTA"
	RoleRequesterSuperior Role = "ATASAN_PEMINTA"
	RoleOperator          Role = "OPERATOR"
	RoleOperatorSuperior  Role = "ATASAN_OPERATOR"
	RoleAdministrator     Role = "ADMIN"
)

// UserProfile is the verified identity returned by the backend
type UserProfile struct {
	ID                    int64  `json:"id"`
	Email                 string `json:"email"`
	FirstName             string `json:"first_name,omitempty"`
	LastName              string `json:"last_name,omitempty"`
	FullName              string `json:"full_name,omitempty"`
	Role                  Role   `json:"role,omitempty"`
	RoleDisplay           string `json:"role_display,omitempty"`
	DepartmentCode        string `json:"department_code,omitempty"`
	PasswordResetRequired bool   `json:"password_reset_required"`
	IsActive              bool   `json:"is_active"`
}

// DisplayName returns the full name when known, otherwise the email
func (u UserProfile) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	if u.FirstName != "" || u.LastName != "" {
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	}
	return u.Email
}

// BasicUser is the abbreviated user embedded in request records
type BasicUser struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	DepartmentCode string `json:"department_code,omitempty"`
}
