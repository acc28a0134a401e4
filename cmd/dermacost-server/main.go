package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/dermacost-ai/platform/pkg/admin"
	"github.com/dermacost-ai/platform/pkg/assessment"
	"github.com/dermacost-ai/platform/pkg/catalog"
	"github.com/dermacost-ai/platform/pkg/common/config"
	"github.com/dermacost-ai/platform/pkg/common/database"
	"github.com/dermacost-ai/platform/pkg/common/kafka"
	"github.com/dermacost-ai/platform/pkg/common/logger"
	"github.com/dermacost-ai/platform/pkg/evidence"
	"github.com/dermacost-ai/platform/pkg/formulary"
	"github.com/dermacost-ai/platform/pkg/ingest"
	"github.com/dermacost-ai/platform/pkg/llm"
	"github.com/dermacost-ai/platform/pkg/patients"
	"github.com/dermacost-ai/platform/pkg/recommend"
	"github.com/dermacost-ai/platform/pkg/server/auth"
	"github.com/dermacost-ai/platform/pkg/server/middleware"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	patientRepo := patients.NewRepository(db)
	formularyRepo := formulary.NewRepository(db)
	evidenceRepo := evidence.NewRepository(db, cfg.LLMEmbeddingDim)
	batchRepo := ingest.NewRepository(db)
	assessmentRepo := assessment.NewRepository(db)

	for name, migrate := range map[string]func() error{
		"patients":    patientRepo.AutoMigrate,
		"formulary":   formularyRepo.AutoMigrate,
		"evidence":    evidenceRepo.AutoMigrate,
		"uploads":     batchRepo.AutoMigrate,
		"assessments": assessmentRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("tables", name).Fatal("migration failed")
		}
	}

	redisClient := database.GetRedis()
	summaryCache := patients.NewSummaryCache(redisClient, cfg.CostSummaryCacheTTL)

	drugCatalog, err := catalog.Load(cfg.DrugCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load drug catalog")
	}

	uploadProducer := kafka.NewProducer(cfg.UploadEventsTopic)
	defer uploadProducer.Close()
	assessmentProducer := kafka.NewProducer(cfg.AssessmentTopic)
	defer assessmentProducer.Close()
	indexProducer := kafka.NewProducer(cfg.KnowledgeIndexTopic)
	defer indexProducer.Close()

	llmClient := llm.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModelName, cfg.LLMEmbeddingModel, cfg.LLMRequestTimeout)

	var searcher *evidence.Retriever
	var engineLLM recommend.LLMClient
	if cfg.LLMAPIKey != "" {
		store := evidence.NewStore(evidenceRepo, llmClient)
		searcher = evidence.NewRetriever(store, cfg.EvidenceResultLimit)
		engineLLM = llmClient
	} else {
		logger.Log.Warn("LLM_API_KEY not set; evidence retrieval disabled, rule engine only")
	}
	generator := recommend.NewGenerator(engineLLM)

	ingestService := ingest.NewService(patientRepo, formularyRepo, evidenceRepo, batchRepo, drugCatalog, summaryCache, uploadProducer, indexProducer)
	var evidenceSearcher assessment.EvidenceSearcher
	if searcher != nil {
		evidenceSearcher = searcher
	}
	assessmentService := assessment.NewService(assessmentRepo, patientRepo, formularyRepo, evidenceSearcher, generator, assessmentProducer)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxUploadBytes))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	ingest.NewHTTPHandler(ingestService).Register(api)
	assessment.NewHTTPHandler(assessmentService, cfg.MaxRequestBody).Register(api)
	patients.NewHTTPHandler(patientRepo, summaryCache).Register(api)

	adminRouter := api.PathPrefix("").Subrouter()
	if cfg.OIDCIssuer != "" {
		oidcAuth, err := auth.NewOIDCAuthenticator(cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCAdminGroup, cfg.OIDCRedirectURL)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to configure oidc")
		}
		auth.NewHTTPHandler(oidcAuth).Register(router)
		adminRouter.Use(middleware.RequireAdmin(oidcAuth))
	} else {
		logger.Log.Warn("OIDC_ISSUER not set; admin routes are unauthenticated")
	}
	admin.NewHTTPHandler(evidenceRepo, formularyRepo, patientRepo, batchRepo).Register(adminRouter)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("dermacost server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down dermacost server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}
	logger.Log.Info("dermacost server stopped")
}
