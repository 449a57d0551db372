package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/identity"
	"jostrid/models"
)

type MeController struct {
	db *gorm.DB
}

func NewMeController(db *gorm.DB) *MeController {
	return &MeController{db: db}
}

type patchMeDto struct {
	PhoneNumber *string `json:"phone_number"`
}

// GetMe returns the local user matching the token's preferred_username.
func (c *MeController) GetMe(ctx *gin.Context) {
	me, ok := c.currentUser(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, toUserDto(me))
}

// PatchMe updates the caller's phone number. Name and email are owned
// by the identity provider and only change through authentication.
func (c *MeController) PatchMe(ctx *gin.Context) {
	me, ok := c.currentUser(ctx)
	if !ok {
		return
	}

	var patch patchMeDto
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := c.db.Model(me).Update("phone_number", patch.PhoneNumber).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	me.PhoneNumber = patch.PhoneNumber
	ctx.JSON(http.StatusOK, toUserDto(me))
}

func (c *MeController) currentUser(ctx *gin.Context) (*models.User, bool) {
	claims, ok := identity.ClaimsFromContext(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Missing credentials"})
		return nil, false
	}

	var me models.User
	err := c.db.Where("email = ?", claims.PreferredUsername).First(&me).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, false
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return nil, false
	}

	return &me, true
}
