// Package controllers adapts HTTP requests to the services. Handlers bind
// and validate input, call one service method and write the envelope.
package controllers

import (
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Login POST /login
func (h *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.BindJSON(&in) {
		return
	}
	res, err := h.auth.Login(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(res)
}

// Register POST /register
func (h *AuthController) Register(c *ctx.Context) {
	var in services.RegisterInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := h.auth.Register(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("User registered successfully", user)
}
