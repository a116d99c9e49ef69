package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL applied by Migrate.
func Schema() string { return schemaSQL }

// DefaultPackage describes a catalog row seeded by SeedPackages.
type DefaultPackage struct {
	Name        string
	Price       float64
	AllowedMaps int
	Priority    int
}

// DefaultPackages is the catalog created on a fresh database.
var DefaultPackages = []DefaultPackage{
	{Name: "Basic", Price: 0, AllowedMaps: 1, Priority: 1},
	{Name: "Standard", Price: 9.99, AllowedMaps: 5, Priority: 2},
	{Name: "Premium", Price: 29.99, AllowedMaps: 25, Priority: 3},
}

// Migrate applies the embedded schema inside a single transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return tx.Commit()
}

// SeedPackages inserts the default catalog, leaving existing rows alone.
func SeedPackages(ctx context.Context, db *sql.DB, pkgs []DefaultPackage) error {
	const q = `INSERT INTO packages (name, price, allowed_maps, priority, active)
	           VALUES ($1, $2, $3, $4, TRUE)
	           ON CONFLICT (name) DO NOTHING`
	for _, p := range pkgs {
		if _, err := db.ExecContext(ctx, q, p.Name, p.Price, p.AllowedMaps, p.Priority); err != nil {
			return fmt.Errorf("seed package %q: %w", p.Name, err)
		}
	}
	return nil
}
