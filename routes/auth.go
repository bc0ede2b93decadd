package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"rag-docqa-platform/internal/auth"
	"rag-docqa-platform/internal/config"
	"rag-docqa-platform/models"
	"rag-docqa-platform/utils"
)

func SetupAuthRoutes(router *gin.Engine, cfg *config.Config, mongoClient *mongo.Client, rdb *redis.Client) {
	authGroup := router.Group("/auth")

	db := mongoClient.Database(cfg.DBName)
	usersCollection := db.Collection("users")

	authGroup.POST("/register", func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var existing models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&existing); err == nil {
			utils.RespondWithConflict(c, "username_exists", "Username already exists")
			return
		}

		hashedPassword, err := utils.HashPassword(req.Password, cfg.BcryptCost)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to process password", nil)
			return
		}

		user := models.User{
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: hashedPassword,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		result, err := usersCollection.InsertOne(context.Background(), user)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create user", nil)
			return
		}

		userID := result.InsertedID.(primitive.ObjectID).Hex()
		pair, err := auth.IssueTokenPair(userID, req.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		c.JSON(http.StatusCreated, models.TokenPairResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			AccessExp:    pair.AccessExp,
			RefreshExp:   pair.RefreshExp,
			User: models.UserInfo{
				ID:       userID,
				Username: req.Username,
				Name:     req.Name,
				Email:    req.Email,
			},
		})
	})

	authGroup.POST("/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"username": req.Username}).Decode(&user); err != nil {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
			return
		}

		if !utils.CheckPassword(req.Password, user.PasswordHash) {
			utils.RespondWithError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
			return
		}

		pair, err := auth.IssueTokenPair(user.ID.Hex(), user.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		c.JSON(http.StatusOK, models.TokenPairResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			AccessExp:    pair.AccessExp,
			RefreshExp:   pair.RefreshExp,
			User: models.UserInfo{
				ID:       user.ID.Hex(),
				Username: user.Username,
				Name:     user.Name,
				Email:    user.Email,
			},
		})
	})

	authGroup.POST("/refresh", func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Refresh token required", nil)
			return
		}

		claims, err := auth.ValidateRefreshToken(req.RefreshToken, rdb)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired refresh token")
			return
		}

		// Rotate: the presented refresh token is revoked before new tokens
		// are issued.
		if err := auth.RevokeToken(claims.ID, true, rdb); err != nil {
			utils.RespondWithInternalError(c, "Failed to rotate token", nil)
			return
		}

		pair, err := auth.IssueTokenPair(claims.UserID, claims.Username, rdb)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to generate tokens", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"access_exp":    pair.AccessExp,
			"refresh_exp":   pair.RefreshExp,
		})
	})

	authGroup.GET("/me", func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authorization header required")
			return
		}
		claims, err := auth.ValidateAccessToken(tokenString, rdb)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			return
		}

		objID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid token subject")
			return
		}
		var user models.User
		if err := usersCollection.FindOne(context.Background(), bson.M{"_id": objID}).Decode(&user); err != nil {
			utils.RespondWithNotFound(c, "User not found")
			return
		}

		c.JSON(http.StatusOK, models.UserInfo{
			ID:       user.ID.Hex(),
			Username: user.Username,
			Name:     user.Name,
			Email:    user.Email,
		})
	})

	authGroup.POST("/logout", func(c *gin.Context) {
		tokenString := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Authorization header required")
			return
		}

		claims, err := auth.ValidateAccessToken(tokenString, rdb)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid token")
			return
		}

		if err := auth.RevokeAllUserTokens(claims.UserID, rdb); err != nil {
			utils.RespondWithInternalError(c, "Failed to revoke tokens", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	})
}
