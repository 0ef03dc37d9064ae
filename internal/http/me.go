package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/services"
)

// MeController serves the acting user's views and profile.
type MeController struct {
	library  LibraryViews
	profiles ProfileManager
	auditor  ActivityAuditor
}

func NewMeController(library LibraryViews, profiles ProfileManager, auditor ActivityAuditor) *MeController {
	return &MeController{
		library:  library,
		profiles: profiles,
		auditor:  auditorOrNoop(auditor),
	}
}

// Dashboard handles GET /api/me/dashboard
func (mc *MeController) Dashboard(c *gin.Context) {
	data, err := mc.library.Dashboard(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, data)
}

// Library handles GET /api/me/library
func (mc *MeController) Library(c *gin.Context) {
	data, err := mc.library.MyLibrary(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "my library")
		return
	}
	c.JSON(http.StatusOK, data)
}

// Profile handles GET /api/me/profile
func (mc *MeController) Profile(c *gin.Context) {
	data, err := mc.profiles.GetProfile(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondDomainError(c, err, "get profile")
		return
	}
	c.JSON(http.StatusOK, data)
}

type profileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Bio       *string `json:"bio"`
}

// UpdateProfile handles PATCH /api/me/profile
// Omitted fields are left as they are.
func (mc *MeController) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid body")
		return
	}
	userID := GetUserID(c)

	data, err := mc.profiles.UpdateProfile(c.Request.Context(), userID, services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Bio:       req.Bio,
	})
	mc.auditor.LogProfile(userID, "profile_update", err)
	if err != nil {
		respondDomainError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, data)
}

// ReplaceAvatar handles POST /api/me/avatar with a multipart "avatar" file.
// The previous avatar file is released once the new one is stored.
func (mc *MeController) ReplaceAvatar(c *gin.Context) {
	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		respondBadRequest(c, "avatar file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondBadRequest(c, "cannot read uploaded file")
		return
	}
	defer file.Close()

	userID := GetUserID(c)
	profile, err := mc.profiles.ReplaceAvatar(c.Request.Context(), userID, fileHeader.Filename, file)
	mc.auditor.LogProfile(userID, "avatar_replace", err)
	if err != nil {
		respondDomainError(c, err, "replace avatar")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// RemoveAvatar handles DELETE /api/me/avatar
func (mc *MeController) RemoveAvatar(c *gin.Context) {
	userID := GetUserID(c)
	err := mc.profiles.RemoveAvatar(c.Request.Context(), userID)
	mc.auditor.LogProfile(userID, "avatar_remove", err)
	if err != nil {
		respondDomainError(c, err, "remove avatar")
		return
	}
	c.Status(http.StatusNoContent)
}
