package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"ticketify/internal/database"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		jsonPath = flag.String("json", "bookings.json", "path to a bookings.json document")
		dbPath   = flag.String("db", "./data/bookings.db", "path to sqlite db")
		force    = flag.Bool("force", false, "replace bookings already in the db")
		hashFor  = flag.String("hash-password", "", "print an admin password document with a bcrypt hash and exit")
	)
	flag.Parse()

	if *hashFor != "" {
		return printPasswordDocument(*hashFor)
	}

	src, err := database.NewFileStore(*jsonPath, &logger)
	if err != nil {
		return fmt.Errorf("open json store: %w", err)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	bookings, err := src.LoadBookings(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", *jsonPath, err)
	}

	existing, err := db.LoadBookings(ctx)
	if err != nil {
		return fmt.Errorf("read db: %w", err)
	}
	if len(existing) > 0 && !*force {
		return fmt.Errorf("db already holds %d bookings; rerun with -force to replace them", len(existing))
	}

	if err := db.SaveBookings(ctx, bookings); err != nil {
		return fmt.Errorf("write db: %w", err)
	}

	logger.Info().
		Int("imported", len(bookings)).
		Int("replaced", len(existing)).
		Str("db", *dbPath).
		Msg("bookings migrated")
	return nil
}

func printPasswordDocument(plain string) error {
	hash, err := database.HashPassword(plain, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(map[string]string{"password_hash": hash}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
