package validation

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Register installs the custom payload validators into gin's binding engine.
// Money travels as decimal strings, dates as RFC3339 strings; these tags let
// binding reject malformed values before the service layer parses them.
func Register() {
	v, ok := binding.Validator.Engine().(*validatorv10.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("decimal", validDecimal)
	_ = v.RegisterValidation("decimalgt0", positiveDecimal)
	_ = v.RegisterValidation("rfc3339", validRFC3339)
}

// validDecimal accepts any parseable decimal string. Empty values pass so
// the tag composes with omitempty/required.
func validDecimal(fl validatorv10.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	_, err := decimal.NewFromString(raw)
	return err == nil
}

func positiveDecimal(fl validatorv10.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	d, err := decimal.NewFromString(raw)
	return err == nil && d.GreaterThan(decimal.Zero)
}

func validRFC3339(fl validatorv10.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339, raw)
	return err == nil
}
