package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username        string `json:"username" validate:"required,min=3,max=30,username"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"omitempty,eqfield=Password"`
}

type poll struct {
	Options []string `json:"pollOptions" validate:"omitempty,min=2,max=10"`
}

func TestStruct(t *testing.T) {
	valid := signup{Username: "alice_01", Email: "alice@example.com", Password: "secret1"}

	tests := []struct {
		name    string
		mutate  func(*signup)
		field   string
		message string
	}{
		{"valid", func(*signup) {}, "", ""},
		{"missing username", func(s *signup) { s.Username = "" }, "username", "username is required"},
		{"short username", func(s *signup) { s.Username = "al" }, "username", "username must be at least 3 characters"},
		{"uppercase username", func(s *signup) { s.Username = "Alice" }, "username", "Username may only contain lowercase letters, numbers, dots and underscores"},
		{"bad email", func(s *signup) { s.Email = "nope" }, "email", "Please enter a valid email address"},
		{"short password", func(s *signup) { s.Password = "123" }, "password", "password must be at least 6 characters"},
		{"confirm mismatch", func(s *signup) { s.ConfirmPassword = "other1" }, "confirmPassword", "Passwords do not match"},
		{"confirm match", func(s *signup) { s.ConfirmPassword = "secret1" }, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			fe := Struct(in)
			if tt.field == "" {
				assert.Nil(t, fe)
				return
			}
			require.NotNil(t, fe)
			assert.Equal(t, tt.field, fe.Field)
			assert.Equal(t, tt.message, fe.Message)
		})
	}
}

func TestStructSliceBounds(t *testing.T) {
	assert.Nil(t, Struct(poll{}))
	assert.Nil(t, Struct(poll{Options: []string{"a", "b"}}))

	fe := Struct(poll{Options: []string{"only"}})
	require.NotNil(t, fe)
	assert.Equal(t, "pollOptions", fe.Field)
	assert.Equal(t, "pollOptions must have at least 2 items", fe.Message)
}
