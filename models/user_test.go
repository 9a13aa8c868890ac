package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserTableName(t *testing.T) {
	user := User{}
	assert.Equal(t, "users", user.TableName(), "Table name should be 'users'")
}

func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name     string
		user     *User
		expected bool
	}{
		{"admin role", &User{Role: RoleAdmin}, true},
		{"staff role", &User{Role: RoleStaff}, false},
		{"empty role", &User{}, false},
		{"nil user", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.IsAdmin())
		})
	}
}

func TestUserDisplayName(t *testing.T) {
	assert.Equal(t, "Asha Rao", (&User{Username: "asha", FullName: "Asha Rao"}).DisplayName())
	assert.Equal(t, "asha", (&User{Username: "asha"}).DisplayName(), "Should fall back to username")

	var missing *User
	assert.Equal(t, "", missing.DisplayName())
}
