package validation

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type namedRequest struct {
	Name  string  `binding:"required,notblank"`
	Title *string `binding:"omitempty,notblank"`
}

func TestNotBlank(t *testing.T) {
	Register()
	Register()

	blank := "   "
	title := "Soup"

	assert.NoError(t, binding.Validator.ValidateStruct(&namedRequest{Name: "Thai"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&namedRequest{Name: "Thai", Title: &title}))
	assert.Error(t, binding.Validator.ValidateStruct(&namedRequest{Name: " \t"}))
	assert.Error(t, binding.Validator.ValidateStruct(&namedRequest{Name: "Thai", Title: &blank}))
}
