package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/models"
)

type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

type UserDto struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	PhoneNumber *string `json:"phone_number"`
}

func toUserDto(user *models.User) UserDto {
	return UserDto{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
	}
}

func (c *UserController) GetUsers(ctx *gin.Context) {
	var users []models.User
	if err := c.db.Find(&users).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	dtos := make([]UserDto, 0, len(users))
	for i := range users {
		dtos = append(dtos, toUserDto(&users[i]))
	}

	ctx.JSON(http.StatusOK, dtos)
}
