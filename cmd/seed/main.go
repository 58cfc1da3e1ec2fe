// Seeds a local database with a month of plausible evaluation records
// for one tenant, so the dashboard and analytics surfaces have data to
// render during development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/evalgate/internal/domain"
	"github.com/tjfontaine/evalgate/internal/storage/sqlite"
)

var samplePrompts = []string{
	"Summarize the attached support ticket",
	"Classify this email as spam or not spam",
	"Extract the shipping address from this order",
	"Draft a reply declining the meeting invite",
	"Translate this paragraph to French",
}

var sampleResponses = []string{
	"The customer reports intermittent login failures since Tuesday.",
	"Not spam: the sender is a known vendor contact.",
	"742 Evergreen Terrace, Springfield, OR 97403",
	"Thanks for the invite; I have a conflict at that time.",
	"Le chat est assis sur le tapis.",
}

var sampleFlags = [][]string{
	{"success"},
	{"success"},
	{"success"},
	{"error"},
	{"warning"},
	{"error", "timeout"},
	{},
}

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "./data/evalgate.db", "path to the SQLite database")
	tenantID := flag.String("tenant", "demo", "tenant to seed")
	count := flag.Int("count", 300, "number of records to generate")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.PutPolicy(ctx, domain.DefaultPolicy(*tenantID)); err != nil {
		log.Fatalf("Failed to seed policy: %v", err)
	}

	now := time.Now().UTC()
	for i := 0; i < *count; i++ {
		pick := rand.Intn(len(samplePrompts))
		age := time.Duration(rand.Int63n(int64(30 * 24 * time.Hour)))

		rec := &domain.EvaluationRecord{
			TenantID:      *tenantID,
			InteractionID: fmt.Sprintf("seed-%04d", i),
			Prompt:        samplePrompts[pick],
			Response:      sampleResponses[pick],
			Score:         0.3 + rand.Float64()*0.7,
			LatencyMs:     50 + rand.Intn(950),
			Flags:         sampleFlags[rand.Intn(len(sampleFlags))],
			CreatedAt:     now.Add(-age),
		}
		if rand.Intn(10) == 0 {
			rec.PIITokensRedacted = 1 + rand.Intn(8)
		}

		if _, err := store.Insert(ctx, rec); err != nil {
			log.Fatalf("Failed to insert record %d: %v", i, err)
		}
	}

	log.Printf("Seeded %d records for tenant %q in %s", *count, *tenantID, *dbPath)
}
