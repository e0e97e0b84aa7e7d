package app

import (
	"log"
	"os"

	"github.com/vibhu2208/hrms-backend-sub002/internal/middleware"
	"github.com/vibhu2208/hrms-backend-sub002/internal/shared/connection"

	"github.com/gin-gonic/gin"
)

func BuildApp(router *gin.Engine) error {
	router.Use(middleware.RequestID())

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("✅ Database connection established")

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	log.Println("✅ Redis connection established")

	// Register Modules & Routes
	return registerModules(router, sqlDB, gormDB, redisClient)
}
