// Package user defines the User entity and its store interface.
package user

import (
	"time"

	"github.com/xraph/gatehouse/entity"
)

// Column names.
const (
	ColUsername = "username"
)

// User is an account that can log in and hold roles.
type User struct {
	entity.Base
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	LoggedIn     bool       `json:"logged_in" db:"logged_in"`
	LastLogOut   *time.Time `json:"last_log_out,omitempty" db:"last_log_out"`
}

// Column implements entity.Record.
func (u *User) Column(name string) (any, bool) {
	if name == ColUsername {
		return u.Username, true
	}
	return u.Base.Column(name)
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	cp := *u
	return &cp
}
