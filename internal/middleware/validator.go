package middleware

import (
    "net/http"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
)

// Validator plugs go-playground/validator into echo.  Install it with
// e.Validator = middleware.NewValidator().
type Validator struct {
    v *validator.Validate
}

func NewValidator() *Validator {
    return &Validator{v: validator.New()}
}

// Validate returns a 400 HTTPError naming the first failing field.
func (cv *Validator) Validate(i interface{}) error {
    if err := cv.v.Struct(i); err != nil {
        if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
            fe := ve[0]
            return echo.NewHTTPError(http.StatusBadRequest, fe.Field()+" failed "+fe.Tag()+" validation")
        }
        return echo.NewHTTPError(http.StatusBadRequest, err.Error())
    }
    return nil
}
