package main

import (
	"log"

	"certmint/clients"
	"certmint/config"
	certControllers "certmint/controllers/certificate"
	"certmint/database"
	authRoutes "certmint/routers/authRoutes"
	certificateRoutes "certmint/routers/certificateRoutes"
	examRoutes "certmint/routers/examRoutes"
	"certmint/services"
	"certmint/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	mailer := utils.NewEmailService()
	dedupClient := clients.NewDedupClient()

	pipeline := services.NewPipeline(
		database.Database.Db,
		clients.NewRendererClient(),
		dedupClient,
		clients.NewEvidenceClient(),
		clients.NewMinterClient(),
		mailer,
		services.PipelineOptions{
			ContractAddress: config.AppConfig.ContractAddress,
			ChainID:         config.AppConfig.ChainID,
			VerifyBaseURL:   config.AppConfig.VerifyBaseURL,
			IssuerName:      config.AppConfig.IssuerName,
		},
	)
	revocations := services.NewRevocationService(database.Database.Db, clients.NewMinterClient(), config.AppConfig.ContractAddress)
	certControllers.Init(pipeline, revocations, mailer, dedupClient)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	examRoutes.SetupExamRoutes(app)
	certificateRoutes.SetupCertificateRoutes(app)

	utils.InitializeReconcileScheduler(revocations, mailer)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
