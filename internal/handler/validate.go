package handler

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

var hundred = decimal.NewFromInt(100)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		b, ok := sl.Current().Interface().(discountBody)
		if !ok {
			return
		}
		if discount.AmountType(b.AmountType) == discount.AmountPercent && b.Amount.GreaterThan(hundred) {
			sl.ReportError(b.Amount, "amount", "Amount", "max_percent", "100")
		}
	}, discountBody{})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		b, ok := sl.Current().Interface().(overlayBody)
		if !ok || b.Amount == nil {
			return
		}
		if discount.AmountType(b.AmountType) == discount.AmountPercent && b.Amount.GreaterThan(hundred) {
			sl.ReportError(*b.Amount, "amount", "Amount", "max_percent", "100")
		}
	}, overlayBody{})
	return v
}

// validationMessage renders validator failures as "field: rule" pairs.
func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		msg := fe.Namespace()
		if _, rest, ok := strings.Cut(msg, "."); ok {
			msg = rest
		}
		msg += ": " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		parts = append(parts, msg)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}
