// Package identity verifies who is calling: customers prove a phone number
// with a one-time code, operators log in with a password, and both receive
// a signed token.
package identity

// Role is the caller class carried in a token.
type Role string

const (
	RoleOperator Role = "operator"
	RoleCustomer Role = "customer"
)

// Identity is the verified caller.
type Identity struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
	Phone   string `json:"phone,omitempty"`
}

func (i Identity) IsOperator() bool {
	return i.Role == RoleOperator
}
