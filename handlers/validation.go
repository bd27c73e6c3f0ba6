package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bitbucket.org/batisoft/catalog_backend/models"
)

// RegisterValidations installs the custom binding validators on gin's
// validator engine. Call once at startup before serving.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ligne_type", func(fl validator.FieldLevel) bool {
			return models.LigneType(fl.Field().String()).Valid()
		})
	}
}
