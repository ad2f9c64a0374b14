package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/matchchat/internal/auth"
	"github.com/oggyb/matchchat/internal/service/account"
)

// GetMe returns the caller's profile.
func (h *Handler) GetMe(c *gin.Context) {
	p, err := h.accounts.GetProfile(c.Request.Context(), auth.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, newProfileResponse(p))
}

// UpdateProfile applies a partial update to the caller's profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := h.accounts.UpdateProfile(c.Request.Context(), auth.UserID(c), account.UpdateProfileInput{
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
	c.JSON(http.StatusOK, newProfileResponse(p))
}

// ListCandidates pages through profiles the caller has not acted on yet.
// GET /api/profile/candidates?page_token=&limit=
func (h *Handler) ListCandidates(c *gin.Context) {
	token, limit, err := pageParams(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	profiles, next, err := h.matches.ListCandidates(c.Request.Context(), auth.UserID(c), token, limit)
	if err != nil {
		h.fail(c, err)
		return
	}

	data := make([]ProfileResponse, 0, len(profiles))
	for i := range profiles {
		data = append(data, *newProfileResponse(&profiles[i]))
	}
	c.JSON(http.StatusOK, PageResponse[ProfileResponse]{Data: data, NextPageToken: next})
}

func (h *Handler) PhotoUploadURL(c *gin.Context) {
	var input PhotoUploadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	upload, err := h.accounts.PhotoUploadURL(c.Request.Context(), auth.UserID(c), input.FileName, input.FileType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

func (h *Handler) PhotoReadURL(c *gin.Context) {
	var input PhotoReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	url, err := h.accounts.PhotoReadURL(c.Request.Context(), input.Key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
