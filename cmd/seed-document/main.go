package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"prism-backend/config"
	"prism-backend/engine"
	"prism-backend/repository"
	"prism-backend/service"
	"prism-backend/storage"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	path := "data/jingyesi.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	blobs, err := storage.NewStorageFromEnv()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	documents := service.NewDocumentService(
		service.WithDocumentStore(repository.NewDocumentRepository(pool)),
		service.WithDocumentStorage(blobs),
	)

	ctx := context.Background()

	// Check if the document is already registered
	format, err := engine.FormatFromFilename(path)
	if err != nil {
		log.Fatalf("Failed to detect format: %v", err)
	}
	doc, err := engine.ParseDocument(data, format)
	if err != nil {
		log.Fatalf("Failed to parse document: %v", err)
	}
	if doc.Meta.ID != "" {
		existingID, err := documents.ResolveID(ctx, doc.Meta.ID)
		if err == nil {
			log.Printf("Document %s already exists (ID: %s)", doc.Meta.ID, existingID)
			return
		}
		if !errors.Is(err, service.ErrDocumentNotFound) {
			log.Fatalf("Failed to look up document: %v", err)
		}
	}

	res, err := documents.RegisterDocument(ctx, service.RegisterDocumentRequest{
		Filename: filepath.Base(path),
		Data:     data,
	})
	if err != nil {
		log.Fatalf("Failed to register document: %v", err)
	}

	fmt.Printf("✅ Document registered successfully!\n")
	fmt.Printf("   ID: %s\n", res.Record.ID)
	fmt.Printf("   Slug: %s\n", res.Record.Slug)
	fmt.Printf("   Title: %s\n", res.Record.Title)
	fmt.Printf("   Fingerprint: %s\n", res.Record.Fingerprint)
	for _, a := range res.Anomalies {
		fmt.Printf("   Anomaly: %s\n", a)
	}
}
