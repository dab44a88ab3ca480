package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/models"
)

type NameRequest struct {
	Name string `json:"name" binding:"required"`
}

func GetCategories(c *gin.Context) {
	var categories []models.Category
	if err := database.DB.Order("name").Find(&categories).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func CreateCategory(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}
	category := models.Category{Name: strings.TrimSpace(req.Name)}
	if err := database.DB.Create(&category).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category likely already exists"})
		return
	}
	c.JSON(http.StatusCreated, category)
}

// --- GET: /api/customers?q= matches name or phone ---
func GetCustomers(c *gin.Context) {
	query := database.DB.Order("name").Limit(100)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		query = query.Where("name LIKE ? OR phone LIKE ?", like, like)
	}

	var customers []models.Customer
	if err := query.Find(&customers).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func GetExpenseCategories(c *gin.Context) {
	var categories []models.ExpenseCategory
	if err := database.DB.Order("name").Find(&categories).Error; err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func CreateExpenseCategory(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
		return
	}
	category := models.ExpenseCategory{Name: strings.TrimSpace(req.Name)}
	if err := database.DB.Create(&category).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category likely already exists"})
		return
	}
	c.JSON(http.StatusCreated, category)
}

func GetExpenses(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	var expenses []models.Expense
	err := database.DB.Preload("Category").
		Where("date BETWEEN ? AND ?", from, to).
		Order("date desc").
		Find(&expenses).Error
	if err != nil {
		respondError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, expenses)
}

type ExpenseRequest struct {
	CategoryID  uint            `json:"category_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

func CreateExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be positive"})
		return
	}

	expense := models.Expense{
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Description: req.Description,
	}
	if req.Date == "" {
		expense.Date = time.Now()
	} else {
		date, err := parseDate(req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		expense.Date = date
	}

	var category models.ExpenseCategory
	if err := database.DB.First(&category, req.CategoryID).Error; err != nil {
		respondError(c, "", notFoundOr(err, "expense category", req.CategoryID))
		return
	}
	if err := database.DB.Create(&expense).Error; err != nil {
		respondError(c, "", err)
		return
	}
	expense.Category = &category
	c.JSON(http.StatusCreated, expense)
}
