package validation

import "strings"

// Credentials is a sign-in attempt.
type Credentials struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
}

// Check reports the shape problems of c. It never looks anything up.
func (c Credentials) Check() Violations {
	c.Email = strings.TrimSpace(c.Email)
	return collect(c, map[string]string{
		"email":    "Invalid email address.",
		"password": "Password must be at least 6 characters.",
	})
}
