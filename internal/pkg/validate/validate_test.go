package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auirah-api/internal/domain"
)

type otpVerify struct {
	Email  string   `json:"email" validate:"required,email"`
	Code   string   `json:"code" validate:"required,len=6,numeric"`
	Labels []string `json:"labels" validate:"omitempty,dive,max=3"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(otpVerify{Email: "a@b.co", Code: "123456"}))
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(otpVerify{Email: "nope", Code: "12", Labels: []string{"long-label"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"The email field must be a valid email address."}, ve.Fields["email"])
	assert.Equal(t, []string{"The code field must be 6 characters."}, ve.Fields["code"])
	assert.Contains(t, ve.Fields, "labels.0")
	assert.Equal(t, "The email field must be a valid email address.", ve.Message)
}

func TestStruct_Required(t *testing.T) {
	err := Struct(otpVerify{})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"The email field is required."}, ve.Fields["email"])
}

func TestStruct_NumericBounds(t *testing.T) {
	type page struct {
		Limit int `json:"limit" validate:"omitempty,min=1,max=50"`
	}
	var ve *domain.ValidationError
	require.True(t, errors.As(Struct(page{Limit: 99}), &ve))
	assert.Equal(t, []string{"The limit field must not be greater than 50."}, ve.Fields["limit"])
	assert.NoError(t, Struct(page{}))
}
