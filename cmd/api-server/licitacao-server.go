package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"licitacoes/db"
	"licitacoes/db/migrations"
	"licitacoes/internal/blob"
	"licitacoes/internal/config"
	"licitacoes/internal/handlers"
	"licitacoes/internal/logger"
	"licitacoes/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	dbConn, err := sqlx.Connect("postgres", cfg.Database.ConnString)
	if err != nil {
		log.Fatalf("Cannot connect to DB: %v", err)
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn.DB); err != nil {
		log.Fatalf("Cannot run migrations: %v", err)
	}

	blobStore, err := blob.NewMinioStore(&cfg.Minio)
	if err != nil {
		log.Fatalf("Cannot create blob store: %v", err)
	}
	if err := blobStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("Cannot ensure bucket: %v", err)
	}

	store := db.NewStorage(dbConn)
	bids := service.NewBidService(store)
	requirements := service.NewRequirementService(store)
	documents := service.NewDocumentService(store, blobStore, requirements,
		cfg.Upload.MaxSizeBytes, time.Duration(cfg.Minio.URLExpireMinutes)*time.Minute)
	clients := service.NewClientService(store)
	h := handlers.NewHandler(bids, documents, requirements, clients)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		// licitações
		r.Post("/licitacoes", h.CreateBidHandler)
		r.Get("/licitacoes", h.GetBidsHandler)
		r.Get("/licitacoes/{bidId}", h.GetBidHandler)
		r.Patch("/licitacoes/{bidId}", h.EditBidHandler)
		r.Post("/licitacoes/{bidId}/confirm", h.ConfirmBidHandler)
		r.Post("/licitacoes/{bidId}/close", h.CloseBidHandler)
		r.Post("/licitacoes/{bidId}/abort", h.AbortBidHandler)
		// documentos
		r.Post("/licitacoes/{bidId}/documentos", h.UploadBidDocumentHandler)
		r.Get("/licitacoes/{bidId}/documentos", h.GetBidDocumentsHandler)
		r.Post("/clientes/{clientId}/documentos", h.UploadClientDocumentHandler)
		r.Get("/clientes/{clientId}/documentos", h.GetClientDocumentsHandler)
		r.Patch("/documentos/{documentId}", h.EditDocumentHandler)
		r.Delete("/documentos/{documentId}", h.DeleteDocumentHandler)
		r.Get("/documentos/{documentId}/url", h.GetDocumentURLHandler)
		r.Get("/tipos-documento", h.GetDocumentTypesHandler)
		// requisitos
		r.Post("/licitacoes/{bidId}/requisitos", h.CreateRequirementHandler)
		r.Get("/licitacoes/{bidId}/requisitos", h.GetRequirementsHandler)
		r.Patch("/requisitos/{requirementId}", h.EditRequirementHandler)
		r.Delete("/requisitos/{requirementId}", h.DeleteRequirementHandler)
		// clientes
		r.Post("/clientes", h.CreateClientHandler)
		r.Get("/clientes", h.GetClientsHandler)
		r.Get("/clientes/{clientId}", h.GetClientHandler)
	})

	log.Printf("Starting server on %s", cfg.Server.Addr)
	log.Fatal(http.ListenAndServe(cfg.Server.Addr, r))
}
