package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pukatu/pukatu-backend/config"
	"github.com/pukatu/pukatu-backend/internal/ai"
	"github.com/pukatu/pukatu-backend/internal/handlers"
	"github.com/pukatu/pukatu-backend/internal/lottery"
	"github.com/pukatu/pukatu-backend/internal/middleware"
)

func Start() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %v", err)
	}

	aiClient := ai.NewClient()
	svc := lottery.NewService(lottery.NewGormStore(db))
	svc.WithNarrator(aiClient.DrawNarrative)

	go sweepPendingPurchases(svc)

	r := gin.Default()

	setupRoutes(r, db, svc, aiClient)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return r.Run(":" + port)
}

// sweepPendingPurchases releases numbers held by pending purchases that
// outlived their raffle's reserve window.
func sweepPendingPurchases(svc *lottery.Service) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		released, err := svc.ExpirePending(context.Background(), time.Now())
		if err != nil {
			log.Printf("Pending purchase sweep failed: %v", err)
			continue
		}
		if released > 0 {
			log.Printf("Released %d expired pending purchases", released)
		}
	}
}

func setupRoutes(r *gin.Engine, db *gorm.DB, svc *lottery.Service, aiClient *ai.Client) {
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.LotteryMiddleware(svc))
	r.Use(middleware.AIMiddleware(aiClient))

	public := r.Group("/v1")
	{
		public.POST("/register", handlers.Register)
		public.POST("/login", handlers.Login)

		rafflePublic := public.Group("/raffles")
		{
			rafflePublic.GET("", handlers.ListActiveRaffles)
			rafflePublic.GET("/:id", handlers.GetRaffle)
			rafflePublic.GET("/:id/grid", handlers.GetRaffleGrid)
			rafflePublic.GET("/:id/lucky-numbers", handlers.LuckyNumbers)
		}

		// Buying needs no account; confirmation happens over WhatsApp.
		purchasePublic := public.Group("/purchases")
		{
			purchasePublic.POST("", handlers.SubmitPurchase)
			purchasePublic.GET("/:id/whatsapp.png", handlers.PurchaseWhatsAppQR)
		}
	}

	protected := r.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	{
		protected.GET("/me", handlers.Me)
		protected.GET("/my/raffles", handlers.ListMyRaffles)
		protected.GET("/my/purchases", handlers.ListMyPurchases)

		admin := protected.Group("")
		admin.Use(middleware.AdminMiddleware())
		{
			admin.POST("/raffles", handlers.CreateRaffle)
			admin.PATCH("/raffles/:id/status", handlers.ToggleRaffleStatus)
			admin.DELETE("/raffles/:id", handlers.DeleteRaffle)
			admin.POST("/raffles/:id/draw", handlers.RunDraw)

			admin.GET("/purchases", handlers.ListPendingPurchases)
			admin.POST("/purchases/:id/confirm", handlers.ConfirmPurchase)
			admin.POST("/purchases/:id/reject", handlers.RejectPurchase)
		}

		super := protected.Group("/admin")
		super.Use(middleware.SuperAdminMiddleware())
		{
			super.GET("/stats", handlers.GetSystemStats)
			super.GET("/users", handlers.ListUsers)
			super.PATCH("/users/:id", handlers.UpdateUser)
			super.DELETE("/users/:id", handlers.DeleteUser)
		}
	}
}
