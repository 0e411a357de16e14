package domain

import (
	"strings"
	"time"
)

type User struct {
	ID        string
	Name      string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrInvalidInput
	}
	if strings.TrimSpace(u.Phone) == "" {
		return ErrInvalidInput
	}
	return nil
}
