package controllers

import (
	"github.com/storefront-go/storefront/app/services"
	"github.com/storefront-go/storefront/pkg/apperr"
	"github.com/storefront-go/storefront/pkg/ctx"
)

type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

func (h *UserController) Index(c *ctx.Context) {
	users, err := h.users.List(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(users)
}

func (h *UserController) Show(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	user, err := h.users.Get(c.Context(), id)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (h *UserController) Store(c *ctx.Context) {
	var in services.CreateUserInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := h.users.Create(c.Context(), in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Created("User created successfully", user)
}

// Update PUT /users/{id}. Only administrators may change the role.
func (h *UserController) Update(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	actor, ok := c.Principal()
	if !ok {
		c.Fail(apperr.Unauthorized("Unauthorized"))
		return
	}
	var in services.UpdateUserInput
	if !c.BindJSON(&in) {
		return
	}
	user, err := h.users.Update(c.Context(), actor, id, in)
	if err != nil {
		c.Fail(err)
		return
	}
	c.Success(user)
}

func (h *UserController) Destroy(c *ctx.Context) {
	id, ok := c.ParamUint("id")
	if !ok {
		return
	}
	if err := h.users.Delete(c.Context(), id); err != nil {
		c.Fail(err)
		return
	}
	c.Message("User deleted successfully")
}
