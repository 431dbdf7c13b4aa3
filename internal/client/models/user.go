// Package models defines the client-side data models shared by the session
// engine, the backend adapters and the CLI.
package models

// User is the cached, read-only view of the signed-in account. UID and Email
// come from the identity backend; DisplayName and Username come from the
// users/{uid} profile document and stay nil until the profile is completed.
type User struct {
	UID         string
	Email       string
	DisplayName *string
	Username    *string
}

// Clone returns a deep copy so callers can't mutate session state through it.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.DisplayName != nil {
		v := *u.DisplayName
		c.DisplayName = &v
	}
	if u.Username != nil {
		v := *u.Username
		c.Username = &v
	}
	return &c
}

// HasCompleteProfile reports whether both display name and username are set.
// A nil user has no profile.
func (u *User) HasCompleteProfile() bool {
	return u != nil && u.DisplayName != nil && u.Username != nil
}

// StringPtr is a small helper for building optional fields.
func StringPtr(s string) *string { return &s }

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
