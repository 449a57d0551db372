package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"jostrid/models"
)

type ExpenseController struct {
	db *gorm.DB
}

func NewExpenseController(db *gorm.DB) *ExpenseController {
	return &ExpenseController{db: db}
}

type ExpenseCategoryDto struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type AccountShareDto struct {
	ExpenseID int `json:"expense_id"`
	UserID    int `json:"user_id"`
	Share     int `json:"share"`
}

type ExpenseDto struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Total     int       `json:"total"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	IsPayment bool      `json:"is_payment"`
}

type ExpenseWithEverythingDto struct {
	ExpenseDto
	PaidBy   UserDto             `json:"paid_by"`
	Category *ExpenseCategoryDto `json:"category"`
	Shares   []AccountShareDto   `json:"shares"`
}

type upsertAccountShareDto struct {
	UserID int `json:"user_id"`
	Share  int `json:"share"`
}

type upsertExpenseDto struct {
	ID         *int                    `json:"id"`
	Name       string                  `json:"name" binding:"required"`
	CreatedAt  *time.Time              `json:"created_at"`
	PaidBy     int                     `json:"paid_by" binding:"required"`
	Total      int                     `json:"total"`
	Currency   string                  `json:"currency" binding:"required"`
	CategoryID *int                    `json:"category_id"`
	Shares     []upsertAccountShareDto `json:"shares"`
	IsPayment  bool                    `json:"is_payment"`
}

func toExpenseDto(expense *models.Expense) ExpenseWithEverythingDto {
	dto := ExpenseWithEverythingDto{
		ExpenseDto: ExpenseDto{
			ID:        expense.ID,
			Name:      expense.Name,
			Total:     expense.Total,
			Currency:  expense.Currency,
			CreatedAt: expense.CreatedAt,
			IsPayment: expense.IsPayment,
		},
		PaidBy: toUserDto(&expense.Payer),
		Shares: make([]AccountShareDto, 0, len(expense.Shares)),
	}

	if expense.Category != nil {
		dto.Category = &ExpenseCategoryDto{
			ID:   expense.Category.ID,
			Name: expense.Category.Name,
		}
	}

	for _, share := range expense.Shares {
		dto.Shares = append(dto.Shares, AccountShareDto{
			ExpenseID: share.ExpenseID,
			UserID:    share.UserID,
			Share:     share.Share,
		})
	}

	return dto
}

func (c *ExpenseController) GetExpenses(ctx *gin.Context) {
	var expenses []models.Expense
	err := c.db.
		Preload("Payer").
		Preload("Category").
		Preload("Shares").
		Order("created_at DESC").
		Find(&expenses).Error
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
		return
	}

	dtos := make([]ExpenseWithEverythingDto, 0, len(expenses))
	for i := range expenses {
		dtos = append(dtos, toExpenseDto(&expenses[i]))
	}

	ctx.JSON(http.StatusOK, dtos)
}

func (c *ExpenseController) GetExpense(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	expense, err := c.loadExpense(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense"})
		return
	}

	ctx.JSON(http.StatusOK, toExpenseDto(expense))
}

// UpsertExpense creates an expense when no id is given and replaces the
// stored fields and shares otherwise. All writes happen in one
// transaction.
func (c *ExpenseController) UpsertExpense(ctx *gin.Context) {
	var dto upsertExpenseDto
	if err := ctx.ShouldBindJSON(&dto); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	var expenseID int
	err := c.db.Transaction(func(tx *gorm.DB) error {
		createdAt := time.Now()
		if dto.CreatedAt != nil {
			createdAt = *dto.CreatedAt
		}

		if dto.ID != nil {
			var existing models.Expense
			if err := tx.First(&existing, *dto.ID).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"name":        dto.Name,
				"total":       dto.Total,
				"currency":    dto.Currency,
				"paid_by":     dto.PaidBy,
				"category_id": dto.CategoryID,
				"is_payment":  dto.IsPayment,
			}
			if dto.CreatedAt != nil {
				updates["created_at"] = *dto.CreatedAt
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}

			if err := tx.Where("expense_id = ?", existing.ID).Delete(&models.AccountShare{}).Error; err != nil {
				return err
			}
			expenseID = existing.ID
		} else {
			expense := models.Expense{
				Name:       dto.Name,
				Total:      dto.Total,
				Currency:   dto.Currency,
				CreatedAt:  createdAt,
				PaidBy:     dto.PaidBy,
				CategoryID: dto.CategoryID,
				IsPayment:  dto.IsPayment,
			}
			if err := tx.Create(&expense).Error; err != nil {
				return err
			}
			expenseID = expense.ID
		}

		for _, share := range dto.Shares {
			record := models.AccountShare{
				ExpenseID: expenseID,
				UserID:    share.UserID,
				Share:     share.Share,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save expense"})
		return
	}

	expense, err := c.loadExpense(expenseID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expense after save"})
		return
	}

	ctx.JSON(http.StatusOK, toExpenseDto(expense))
}

func (c *ExpenseController) DeleteExpense(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
		return
	}

	err = c.db.Transaction(func(tx *gorm.DB) error {
		var expense models.Expense
		if err := tx.First(&expense, id).Error; err != nil {
			return err
		}
		if err := tx.Where("expense_id = ?", id).Delete(&models.AccountShare{}).Error; err != nil {
			return err
		}
		return tx.Delete(&expense).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

func (c *ExpenseController) loadExpense(id int) (*models.Expense, error) {
	var expense models.Expense
	err := c.db.
		Preload("Payer").
		Preload("Category").
		Preload("Shares").
		First(&expense, id).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}
