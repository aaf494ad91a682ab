package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/pukatu/pukatu-backend/internal/ai"
	"github.com/pukatu/pukatu-backend/internal/lottery"
)

func LotteryMiddleware(svc *lottery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lottery_service", svc)
		c.Next()
	}
}

func GetLotteryService(c *gin.Context) *lottery.Service {
	svc, exists := c.Get("lottery_service")
	if !exists {
		return nil
	}
	return svc.(*lottery.Service)
}

func AIMiddleware(client *ai.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("ai_client", client)
		c.Next()
	}
}

func GetAIClient(c *gin.Context) *ai.Client {
	client, exists := c.Get("ai_client")
	if !exists {
		return nil
	}
	return client.(*ai.Client)
}
