// Package domain defines the types and interfaces for the users service
package domain

import "time"

// User is the identity record. Users are never deleted, deactivation flips Active
type User struct {
	ID         int64
	TelegramID int64
	Name       string
	Language   string
	Timezone   string
	Active     bool
	CreatedAt  time.Time
}

// ProfilePatch carries the updatable profile fields, nil means leave as is
type ProfilePatch struct {
	Name     *string
	Language *string
	Timezone *string
}
