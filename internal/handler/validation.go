package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/reservapr/booking-api/internal/timeutil"
)

// RegisterValidations wires the request DTO tags into gin's binding
// validator. hhmm accepts 24h wall-clock strings like "09:00".
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.SetTagName("validate")
	v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := timeutil.ParseHHMM(fl.Field().String())
		return err == nil
	})
}
