package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/arcanetable/encounter-server/internal/config"
	"github.com/arcanetable/encounter-server/internal/repository"
	"github.com/arcanetable/encounter-server/internal/roster"
)

var configPath = flag.String("config", "config/config.yaml", "path to configuration file")

func main() {
	flag.Parse()
	ctx := context.Background()

	// Get CSV file path from args or use default
	csvPath := "data/npcs.csv"
	if flag.NArg() > 0 {
		csvPath = flag.Arg(0)
	}

	absPath, err := filepath.Abs(csvPath)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== NPC Sheet Import ===")
	fmt.Printf("CSV file: %s\n", absPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	npcs, err := roster.ParseNPCSheet(file)
	if err != nil {
		log.Fatalf("Failed to parse NPC sheet: %v", err)
	}
	fmt.Printf("Parsed %d NPCs\n", len(npcs))

	fmt.Printf("Opening %s storage...\n", cfg.Storage.Driver)
	collections, err := repository.Open(ctx, cfg.Storage, cfg.Database, nil)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer collections.Close()

	start := time.Now()
	result, err := roster.NewStore(collections).ImportNPCs(ctx, npcs)
	if err != nil {
		log.Fatalf("Failed to import NPCs: %v", err)
	}

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Added:   %d\n", result.Added)
	fmt.Printf("Updated: %d\n", result.Updated)
	fmt.Printf("Time taken: %s\n", time.Since(start))
}
