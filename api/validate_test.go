package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmailAddress(t *testing.T) {
	valid := []string{
		"user@example.com",
		"a@b.co",
		"first.last+tag@sub.example.org",
	}
	for _, email := range valid {
		assert.NoError(t, validateEmailAddress(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@example",
		"user name@example.com",
		"user@exam ple.com",
	}
	for _, email := range invalid {
		err := validateEmailAddress(email)
		assert.Error(t, err, email)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, "email", verr.Field)
	}
}

func TestValidatePassword(t *testing.T) {
	valid := []string{
		"abcd1234",
		"Passw0rd",
		"1234567a",
	}
	for _, pw := range valid {
		assert.NoError(t, validatePassword(pw), pw)
	}

	invalid := []string{
		"",
		"short1a",    // too short
		"abcdefgh",   // no digit
		"12345678",   // no letter
		"abcd 1234",  // space not allowed
		"abcd1234!",  // punctuation not allowed
	}
	for _, pw := range invalid {
		assert.Error(t, validatePassword(pw), pw)
	}
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, validateName("Jane"))
	assert.Error(t, validateName(""))
}
