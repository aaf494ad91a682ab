package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pukatu/pukatu-backend/internal/helpers"
	"github.com/pukatu/pukatu-backend/internal/models"
)

const bearerSchema = "Bearer "

// JWTAuthMiddleware validates the Authorization header and puts the token's
// user id into the context as "user_id".
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Authorization header is required.")
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Authorization header must start with Bearer.")
			c.Abort()
			return
		}
		tokenString := authHeader[len(bearerSchema):]

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token.")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid token claims.")
			c.Abort()
			return
		}
		userIDStr, _ := claims["user_id"].(string)
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Invalid token claims.")
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// AdminMiddleware loads the authenticated user and aborts unless they hold
// an admin or superadmin role with an active account. Pending admins stay
// locked out until a superadmin approves them. The loaded user is stored as
// "current_user". Runs after JWTAuthMiddleware and DatabaseMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return requireRole(func(role models.Role) bool { return role.CanManageRaffles() })
}

// SuperAdminMiddleware restricts a route to active superadmins.
func SuperAdminMiddleware() gin.HandlerFunc {
	return requireRole(func(role models.Role) bool { return role == models.RoleSuperAdmin })
}

func requireRole(allowed func(models.Role) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := loadUser(c)
		if !ok {
			return
		}
		if !allowed(user.Role) {
			helpers.RespondWithError(c, http.StatusForbidden, "Insufficient role for this operation.")
			c.Abort()
			return
		}
		if user.Status != models.UserActive {
			helpers.RespondWithError(c, http.StatusForbidden, "Account is not active.")
			c.Abort()
			return
		}
		c.Set("current_user", user)
		c.Next()
	}
}

func loadUser(c *gin.Context) (models.User, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		c.Abort()
		return models.User{}, false
	}
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		c.Abort()
		return models.User{}, false
	}
	gormDB := db.(*gorm.DB)

	var user models.User
	if err := gormDB.Where("id = ?", userID).First(&user).Error; err != nil {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not found.")
		c.Abort()
		return models.User{}, false
	}
	return user, true
}
