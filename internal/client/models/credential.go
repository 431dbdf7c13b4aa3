package models

// StoredCredential is the last successful login, persisted locally so the
// next start can sign in without prompting. Exactly one variant is set:
// an email/password pair, or the FacebookLogin marker.
type StoredCredential struct {
	Email         string `json:"email,omitempty"`
	Password      string `json:"password,omitempty"`
	FacebookLogin bool   `json:"facebookLogin,omitempty"`
}

// PasswordCredential builds the email/password variant.
func PasswordCredential(email, password string) *StoredCredential {
	return &StoredCredential{Email: email, Password: password}
}

// FacebookCredential builds the Facebook marker variant.
func FacebookCredential() *StoredCredential {
	return &StoredCredential{FacebookLogin: true}
}

// Valid reports whether exactly one variant is populated.
func (c *StoredCredential) Valid() bool {
	if c == nil {
		return false
	}
	if c.FacebookLogin {
		return c.Email == "" && c.Password == ""
	}
	return c.Email != "" && c.Password != ""
}
