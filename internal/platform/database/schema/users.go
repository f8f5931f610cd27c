// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schema

// UserTable represents the 'users' table
type UserTable struct {
	Table          string
	ID             string
	Email          string
	HashedPassword string
	FullName       string
	EmailVerified  string
	AvatarURL      string
	Timezone       string
	Language       string
	CreatedAt      string
	UpdatedAt      string
}

// User is the schema definition for users
var User = UserTable{
	Table:          "users",
	ID:             "id",
	Email:          "email",
	HashedPassword: "hashed_password",
	FullName:       "full_name",
	EmailVerified:  "email_verified",
	AvatarURL:      "avatar_url",
	Timezone:       "timezone",
	Language:       "language",
	CreatedAt:      "created_at",
	UpdatedAt:      "updated_at",
}

// Columns returns all standard column names in scan order
func (t UserTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.HashedPassword, t.FullName, t.EmailVerified,
		t.AvatarURL, t.Timezone, t.Language, t.CreatedAt, t.UpdatedAt,
	}
}
