package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Shares are signed, so the per-user sum per currency is the running
// balance.
const balanceQuery = `
SELECT user_id, SUM(share) AS balance, e.currency
FROM account_share
LEFT JOIN expense AS e ON e.id = expense_id
GROUP BY user_id, e.currency`

type BalanceController struct {
	db *gorm.DB
}

func NewBalanceController(db *gorm.DB) *BalanceController {
	return &BalanceController{db: db}
}

type BalanceDto struct {
	UserID   int    `json:"user_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

func (c *BalanceController) GetBalance(ctx *gin.Context) {
	var balances []BalanceDto
	if err := c.db.Raw(balanceQuery).Scan(&balances).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
		return
	}

	if balances == nil {
		balances = []BalanceDto{}
	}

	ctx.JSON(http.StatusOK, balances)
}
