package validation

import (
	"testing"

	"erpcore/internal/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name    string  `json:"name" validate:"required"`
	CPF     string  `json:"cpf" validate:"required,cpf"`
	Email   string  `json:"email" validate:"required,email"`
	State   string  `json:"state" validate:"required,uf"`
	Pass    string  `json:"password" validate:"required"`
	Confirm string  `json:"confirmPassword" validate:"omitempty,eqfield=Pass"`
	Note    *string `json:"note" validate:"omitempty,max=5"`
}

func TestValidatorStruct(t *testing.T) {
	v := NewValidator()

	ok := signup{Name: "Ana", CPF: "111.444.777-35", Email: "ana@example.com", State: "sp", Pass: "x", Confirm: "x"}
	require.NoError(t, v.Struct(ok))

	bad := signup{CPF: "12345678901", Email: "nope", State: "São", Pass: "x", Confirm: "y"}
	err := v.Struct(bad)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	e, _ := apperrors.As(err)
	assert.ElementsMatch(t, []string{
		"name is required",
		"cpf must be a valid CPF",
		"email must be a valid email address",
		"state must be a two-letter state code",
		"confirmPassword must match pass",
	}, e.Details)
}

func TestIsStateCode(t *testing.T) {
	assert.True(t, IsStateCode("SP"))
	assert.True(t, IsStateCode(" rj "))
	assert.False(t, IsStateCode("S1"))
	assert.False(t, IsStateCode("SPA"))
	assert.False(t, IsStateCode(""))
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("joao@example.com.br"))
	assert.False(t, IsEmail("joao@"))
	assert.False(t, IsEmail(""))
}
