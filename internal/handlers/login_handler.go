package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"go-rental-ledger/internal/auth"
	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/models"
)

type credentials struct {
	Username string `json:"username" binding:"required,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// bindCredentials reads the body and folds the username to the form it is
// stored under, so "Dana " and "dana" are the same account.
func bindCredentials(c *gin.Context) (credentials, bool) {
	var in credentials
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and a password of 6 to 72 characters are required"})
		return in, false
	}
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	if in.Username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username cannot be blank"})
		return in, false
	}
	return in, true
}

// Login exchanges a username and password for a signed token.
func Login(c *gin.Context) {
	in, ok := bindCredentials(c)
	if !ok {
		return
	}

	var user models.User
	err := database.DB.Where("username = ?", in.Username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown username or wrong password"})
		return
	}
	if err != nil {
		respondError(c, "", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown username or wrong password"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		config.LogError(config.GetLogger(), "handlers", "Login", "signing token", user.Username, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue a token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "role": user.Role, "username": user.Username})
}

// Register creates a back-office user. The very first account becomes admin,
// every later one is staff.
func Register(c *gin.Context) {
	in, ok := bindCredentials(c)
	if !ok {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, "", err)
		return
	}

	var existing int64
	if err := database.DB.Model(&models.User{}).Count(&existing).Error; err != nil {
		respondError(c, "", err)
		return
	}
	role := "staff"
	if existing == 0 {
		role = "admin"
	}

	user := models.User{Username: in.Username, PasswordHash: string(hash), Role: role}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "username " + in.Username + " is taken"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"username": user.Username, "role": role})
}
