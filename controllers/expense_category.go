package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/models"
)

// Most-used categories first so clients can show them at the top.
const categoriesByUsage = `
SELECT ec.* FROM expense_category AS ec
LEFT JOIN expense AS e ON e.category_id = ec.id
GROUP BY ec.id, ec.name
ORDER BY count(e.category_id) DESC`

type ExpenseCategoryController struct {
	db *gorm.DB
}

func NewExpenseCategoryController(db *gorm.DB) *ExpenseCategoryController {
	return &ExpenseCategoryController{db: db}
}

func (c *ExpenseCategoryController) GetExpenseCategories(ctx *gin.Context) {
	var categories []models.ExpenseCategory
	if err := c.db.Raw(categoriesByUsage).Scan(&categories).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	dtos := make([]ExpenseCategoryDto, 0, len(categories))
	for _, category := range categories {
		dtos = append(dtos, ExpenseCategoryDto{ID: category.ID, Name: category.Name})
	}

	ctx.JSON(http.StatusOK, dtos)
}
