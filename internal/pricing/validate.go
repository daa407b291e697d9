package pricing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterStructValidation(couponStructLevel, AppliedCoupon{})
	return v
}

// couponStructLevel bounds Value to a percentage only for percentage coupons.
func couponStructLevel(sl validator.StructLevel) {
	c := sl.Current().Interface().(AppliedCoupon)
	if c.Type == CouponPercentage && c.Value.GreaterThan(hundred) {
		sl.ReportError(c.Value, "value", "Value", "max", "100")
	}
}

// ValidateItem checks a single line item's fields.
func ValidateItem(it TicketLineItem) error {
	return structError("", validate.Struct(it))
}

// ValidateCoupon checks an applied coupon's shape.
func ValidateCoupon(c AppliedCoupon) error {
	return structError("coupon", validate.Struct(c))
}

func structError(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Field: prefix, Reason: err.Error()}
	}
	fe := errs[0]
	field := fe.Field()
	if prefix != "" {
		field = prefix + "." + field
	}
	return &ValidationError{Field: field, Reason: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be %s characters long", fe.Param())
	case "alpha":
		return "must contain letters only"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	}
	return "is invalid"
}
