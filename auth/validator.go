package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// RegisterRequest is the payload of a "register" event.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	ImageData string `json:"image_data,omitempty"`
}

// LoginRequest is the payload of a "login" event. Handle accepts either
// the full "name#1234" handle or a bare username.
type LoginRequest struct {
	Handle    string `json:"handle" validate:"required"`
	Password  string `json:"password" validate:"required"`
	PushToken string `json:"fcm_token,omitempty"`
}

func ValidateRegister(req RegisterRequest) error {
	return validate.Struct(req)
}

func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
