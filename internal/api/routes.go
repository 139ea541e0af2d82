// Package api wires the HTTP surface: REST routes, the websocket feed and
// the health endpoint.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/finexa/fxarb/internal/api/handlers"
	"github.com/finexa/fxarb/internal/database"
	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
	"github.com/finexa/fxarb/internal/ws"
)

// Dependencies carries everything the routes need. Database and Redis may be
// nil when running purely in memory.
type Dependencies struct {
	Store       store.Store
	Book        *services.Book
	Rates       market.RateSource
	Executor    *services.Executor
	Advisor     *services.Advisor
	Governors   *services.Governors
	Analysis    *services.AnalysisService
	Credentials *services.CredentialService
	Scheduler   *services.Scheduler
	Hub         *ws.Hub
	DB          *database.PostgresDB
	Redis       *database.RedisClient
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	configHandler := handlers.NewConfigHandler(deps.Store)
	marketHandler := handlers.NewMarketHandler(deps.Rates, deps.Book, deps.Analysis)
	executionHandler := handlers.NewExecutionHandler(deps.Store, deps.Book, deps.Executor, deps.Advisor)
	advisorHandler := handlers.NewAdvisorHandler(deps.Store, deps.Book, deps.Rates, deps.Advisor, deps.Analysis)
	historyHandler := handlers.NewHistoryHandler(deps.Store)
	statusHandler := handlers.NewStatusHandler(deps.Store, deps.Governors)
	positionsHandler := handlers.NewPositionsHandler(deps.Store, deps.Executor, deps.Rates)
	credentialsHandler := handlers.NewCredentialsHandler(deps.Credentials)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Redis, deps.Scheduler)

	router.GET("/health", healthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/config", configHandler.CreateConfig)
		api.GET("/config/:configID", configHandler.GetConfig)

		api.GET("/market-data", marketHandler.GetMarketData)
		api.GET("/market-analysis", marketHandler.GetMarketAnalysis)
		api.GET("/opportunities", marketHandler.GetOpportunities)

		api.POST("/execute-trade/:opportunityID", executionHandler.ExecuteTrade)
		api.POST("/advisor-execute-trade/:opportunityID", executionHandler.AdvisorExecuteTrade)

		advisor := api.Group("/advisor")
		{
			advisor.POST("/market-sentiment", advisorHandler.MarketSentiment)
			advisor.POST("/risk-assessment/:opportunityID", advisorHandler.RiskAssessment)
			advisor.POST("/trading-recommendation/:configID", advisorHandler.TradingRecommendation)
		}

		api.GET("/trades/history/:configID", historyHandler.GetTradeHistory)
		api.GET("/performance/:configID", historyHandler.GetPerformance)

		api.GET("/autonomous-status/:configID", statusHandler.GetAutonomousStatus)
		api.GET("/advisor-status/:configID", statusHandler.GetAdvisorStatus)

		// Same wildcard name on every positions route: gin rejects mixed
		// parameter names at one position in the tree.
		api.GET("/positions/:id", positionsHandler.GetOpenPositions)
		api.POST("/positions/:id/close", positionsHandler.ClosePosition)
		api.POST("/positions/:id/hedge", positionsHandler.HedgePosition)

		credentials := api.Group("/credentials")
		{
			credentials.POST("", credentialsHandler.CreateCredential)
			credentials.GET("", credentialsHandler.ListCredentials)
			credentials.GET("/:credentialID", credentialsHandler.GetCredential)
			credentials.POST("/:credentialID/validate", credentialsHandler.ValidateCredential)
			credentials.DELETE("/:credentialID", credentialsHandler.DeleteCredential)
		}

		api.GET("/ws", func(c *gin.Context) {
			deps.Hub.HandleConnection(c.Writer, c.Request)
		})
	}
}
