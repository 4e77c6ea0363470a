package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"kakeibo/internal/core"
)

// Validate is the shared validator instance with the ledger's custom rules
// registered.
var Validate *validator.Validate

func init() {
	Validate = validator.New()

	// notblank: non-empty after trimming whitespace.
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// amountstr: parses as a positive whole-unit amount.
	_ = Validate.RegisterValidation("amountstr", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
}
