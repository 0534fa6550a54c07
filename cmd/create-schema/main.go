package main

import (
	"context"
	"fmt"
	"log"

	"prism-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	tables := []struct {
		name string
		sql  string
	}{
		{
			name: "documents",
			sql: `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    slug VARCHAR(255) NOT NULL,
    title VARCHAR(500) NOT NULL DEFAULT '',
    filename VARCHAR(255) NOT NULL,
    mime_type VARCHAR(100) NOT NULL,
    size BIGINT NOT NULL,
    storage_path TEXT NOT NULL,
    fingerprint CHAR(64) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "reading_sessions",
			sql: `
CREATE TABLE IF NOT EXISTS reading_sessions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);`,
		},
		{
			name: "export_jobs",
			sql: `
CREATE TABLE IF NOT EXISTS export_jobs (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    session_id UUID NOT NULL REFERENCES reading_sessions(id) ON DELETE CASCADE,
    document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    format VARCHAR(20) NOT NULL DEFAULT 'tei',
    status VARCHAR(50) NOT NULL DEFAULT 'pending',
    steps JSONB NOT NULL DEFAULT '[]'::jsonb,
    selection JSONB NOT NULL DEFAULT '{}'::jsonb,
    share_token TEXT NOT NULL DEFAULT '',
    document_fingerprint CHAR(64) NOT NULL,
    storage_path TEXT,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW(),
    completed_at TIMESTAMP
);`,
		},
		{
			name: "kv_store",
			sql: `
CREATE TABLE IF NOT EXISTS kv_store (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT NOW()
);`,
		},
	}

	for _, t := range tables {
		if _, err := pool.Exec(ctx, t.sql); err != nil {
			log.Fatalf("Failed to create %s table: %v", t.name, err)
		}
		log.Printf("✓ Created %s table", t.name)
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Document slug lookup",
			sql:  "CREATE INDEX IF NOT EXISTS idx_documents_slug ON documents(slug, created_at DESC);",
		},
		{
			name: "Sessions by document",
			sql:  "CREATE INDEX IF NOT EXISTS idx_reading_sessions_document ON reading_sessions(document_id);",
		},
		{
			name: "Export jobs by session",
			sql:  "CREATE INDEX IF NOT EXISTS idx_export_jobs_session ON export_jobs(session_id);",
		},
		{
			name: "Pending export jobs",
			sql:  "CREATE INDEX IF NOT EXISTS idx_export_jobs_status ON export_jobs(status) WHERE status IN ('pending', 'in_progress');",
		},
	}

	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Printf("   Tables: %d\n", len(tables))
	fmt.Printf("   Indexes: %d\n", len(indexes))
}
