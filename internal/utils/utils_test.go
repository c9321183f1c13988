package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `validate:"required"`
	Body string `validate:"max=5"`
	Mode string `validate:"oneof=ws redis"`
}

func TestValidate(t *testing.T) {
	v := validator.New()

	require.NoError(t, Validate(v, sample{Name: "a", Body: "hi", Mode: "ws"}))

	err := Validate(v, sample{Body: strings.Repeat("x", 6), Mode: "tcp"})
	var ve ValidationError
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 3)
	assert.Equal(t, "Name", ve[0].Field)
	assert.Equal(t, "This field is required.", ve[0].Message)
	assert.Equal(t, "max", ve[1].Tag)
	assert.Equal(t, "Must be at most 5 characters.", ve[1].Message)
	assert.Equal(t, "Must be one of [ws redis].", ve[2].Message)
	assert.Contains(t, err.Error(), "Name: This field is required.")
}
