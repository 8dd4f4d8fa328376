package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Prabhav200511/QuickQRTicket/lib/logger/sl"
	"github.com/Prabhav200511/QuickQRTicket/models"
	"github.com/Prabhav200511/QuickQRTicket/utils"
)

const otpTTL = 5 * time.Minute

// OTPMailer delivers one-time passcodes. Satisfied by utils.Mailer; tests
// substitute a fake.
type OTPMailer interface {
	SendOTP(to, otp string) error
}

type AuthController struct {
	DB     *gorm.DB
	Secret []byte
	Mailer OTPMailer
	Log    *slog.Logger
}

func (a *AuthController) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie("token", token, int(utils.TokenTTL.Seconds()), "/", "", gin.Mode() == gin.ReleaseMode, true)
}

func (a *AuthController) clearAuthCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie("token", "", -1, "/", "", gin.Mode() == gin.ReleaseMode, true)
}

// Signup registers a new user and logs them in
func (a *AuthController) Signup(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == "" || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required."})
		return
	}

	var existing models.User
	if err := a.DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already exists."})
		return
	}

	role := models.RoleCustomer
	if input.Role == string(models.RoleHost) {
		role = models.RoleHost
	}

	user := models.User{
		Name:  input.Name,
		Email: input.Email,
		Role:  role,
	}
	if err := user.HashPassword(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal error during signup."})
		return
	}
	if err := a.DB.Create(&user).Error; err != nil {
		a.Log.Error("signup failed", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal error during signup."})
		return
	}

	token, err := utils.GenerateToken(a.Secret, user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal error during signup."})
		return
	}
	a.setAuthCookie(c, token)

	c.JSON(http.StatusCreated, gin.H{"message": "Signup successful", "user": user})
}

// Login authenticates an existing user and sets the auth cookie
func (a *AuthController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Email == "" || input.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required."})
		return
	}

	var user models.User
	if err := a.DB.Where("email = ?", input.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}
	if !user.CheckPassword(input.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials."})
		return
	}

	token, err := utils.GenerateToken(a.Secret, user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal error during login."})
		return
	}
	a.setAuthCookie(c, token)

	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "user": user})
}

// Logout clears the auth cookie
func (a *AuthController) Logout(c *gin.Context) {
	a.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully!"})
}

// Me returns the authenticated user
func (a *AuthController) Me(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"user": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile updates the authenticated user's name
func (a *AuthController) UpdateProfile(c *gin.Context) {
	userID := c.GetUint("user_id")

	var input struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Name is required."})
		return
	}

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	user.Name = input.Name
	if err := a.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to update profile."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

// SendOTP generates an OTP, stores its hash on the user row and mails it
func (a *AuthController) SendOTP(c *gin.Context) {
	userID := c.GetUint("user_id")

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	otp, err := utils.GenerateOTP()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return
	}
	hash, err := utils.HashOTP(otp)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return
	}

	expires := time.Now().Add(otpTTL)
	user.OTPHash = &hash
	user.OTPExpires = &expires
	if err := a.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return
	}

	if err := a.Mailer.SendOTP(user.Email, otp); err != nil {
		a.Log.Error("failed to mail otp", sl.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to send OTP email."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your registered email"})
}

// ChangePassword sets a new password after verifying the OTP
func (a *AuthController) ChangePassword(c *gin.Context) {
	userID := c.GetUint("user_id")

	var input struct {
		OTP         string `json:"otp"`
		NewPassword string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.OTP == "" || input.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "OTP and new password are required"})
		return
	}

	var user models.User
	if err := a.DB.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}

	if user.OTPExpires == nil || time.Now().After(*user.OTPExpires) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "OTP has expired"})
		return
	}
	if user.OTPHash == nil || !utils.CompareOTP(input.OTP, *user.OTPHash) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid OTP"})
		return
	}

	if err := user.HashPassword(input.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to change password."})
		return
	}
	user.OTPHash = nil
	user.OTPExpires = nil
	if err := a.DB.Save(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to change password."})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// DeleteAccount removes the authenticated user
func (a *AuthController) DeleteAccount(c *gin.Context) {
	userID := c.GetUint("user_id")

	if err := a.DB.Delete(&models.User{}, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete account."})
		return
	}
	a.clearAuthCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
