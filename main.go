package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"lg/biteright-go-api/internal/events"
	"lg/biteright-go-api/internal/foodlookup"
)

func main() {
	log.SetPrefix("biteright-go-api: ")
	log.SetFlags(0)

	// .env is optional here; deployed environments set real env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}
	cfg := mustLoadConfig()

	pool := getDBPool(cfg.DBURL)
	defer pool.Close()

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		p, err := events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			log.Printf("[main] event publishing disabled: %v", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	h := &Handler{
		db:        pool,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  cfg.TokenTTL,
		foods:     foodlookup.NewClient(cfg.OpenFoodFactsURL, &http.Client{Timeout: 10 * time.Second}),
		events:    publisher,
	}

	fmt.Println("Starting gin app...")

	router := gin.Default()
	router.SetTrustedProxies(nil)
	h.registerRoutes(router)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("[main] server stopped: %v", err)
	}
}
