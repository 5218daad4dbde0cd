package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/veriflow/orchestrator/internal/application/sweeper"
	"github.com/veriflow/orchestrator/internal/config"
	"github.com/veriflow/orchestrator/internal/infrastructure/collaborator"
	"github.com/veriflow/orchestrator/internal/infrastructure/dynamo"
	jwtinfra "github.com/veriflow/orchestrator/internal/infrastructure/jwt"
	s3infra "github.com/veriflow/orchestrator/internal/infrastructure/s3"
	"github.com/veriflow/orchestrator/internal/infrastructure/sns"
	transporthttp "github.com/veriflow/orchestrator/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT verifier (optional — graceful fallback if the public key is missing).
	var jwtVerifier *jwtinfra.Verifier
	if v, err := jwtinfra.NewVerifier(cfg); err == nil {
		jwtVerifier = v
	} else {
		log.Printf("WARN: JWT verifier not available, auth disabled: %v", err)
	}

	// S3 media store.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SNS decision publisher (optional — graceful fallback).
	var publisher sns.DecisionPublisher
	if p, err := sns.NewPublisher(cfg); err == nil {
		publisher = p
	} else {
		log.Printf("WARN: SNS publisher not available: %v", err)
	}

	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)

	deps := &transporthttp.Deps{
		SessionRepo:      sessionRepo,
		DocumentRepo:     dynamo.NewDocumentRepo(dynamoClient, cfg.DynamoTables.Documents),
		StageResultRepo:  dynamo.NewStageResultRepo(dynamoClient, cfg.DynamoTables.StageResults),
		S3Store:          s3Store,
		Publisher:        publisher,
		DocumentAnalyzer: collaborator.NewDocumentAnalyzer(cfg.Collaborators),
		FaceMatcher:      collaborator.NewFaceMatcher(cfg.Collaborators),
		LivenessDetector: collaborator.NewLivenessDetector(cfg.Collaborators),
		DeepfakeDetector: collaborator.NewDeepfakeDetector(cfg.Collaborators),
		JWTVerifier:      jwtVerifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// Background sweep of abandoned sessions.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go sweeper.New(sessionRepo, publisher, cfg.SessionTTL, cfg.SweepInterval).Run(sweepCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // collaborator calls run within the request
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
