package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/service/account"
)

// RegisterUser creates an account with its profile.
// POST /api/auth/register → 201 UserResponse
func (h *Handler) RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Email:    input.Email,
		Password: input.Password,
		Name:     input.Name,
		Age:      input.Age,
		Gender:   input.Gender,
		Bio:      input.Bio,
		PhotoURL: input.PhotoURL,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, newUserResponse(user))
}

// Login exchanges credentials for a bearer token.
// POST /api/auth/login → 200 LoginResponse
func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	token, user, err := h.accounts.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, User: newUserResponse(user)})
}
