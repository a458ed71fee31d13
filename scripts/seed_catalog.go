package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"ochre-shop/internal/config"
	"ochre-shop/internal/database"
	"ochre-shop/internal/model"
	"ochre-shop/internal/repository"
	"ochre-shop/internal/service"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

type seedUnit struct {
	label     string
	price     string
	isDefault bool
}

type seedProduct struct {
	title        string
	slug         string
	category     string
	description  string
	price        string
	taxPercent   string
	isExperience bool
	units        []seedUnit
}

var categories = []string{
	"T-SHIRTS",
	"COFFEE-MUGS",
	"GLASSWARE",
	"BARTENDING-KIT",
	"HIP-FLASK",
	"COCKTAIL-MIX-PACKETS",
	"MIXERS-PARTY-BOXES",
	"EXPERIENCES",
	"Sample",
}

var products = []seedProduct{
	{title: "Ochre Signature T-Shirt (Pack of 3)", category: "T-SHIRTS", description: "Premium cotton pack, three colours included.", price: "1999.00", taxPercent: "5"},
	{title: "Ochre Glassware Gift Set", category: "GLASSWARE", description: "Two crystal tumblers and tasting guide.", price: "3499.00", taxPercent: "12"},
	{title: "Cocktail Mix Pack (Citrus)", category: "COCKTAIL-MIX-PACKETS", description: "Ready-to-mix syrup packs for your home bar.", price: "999.00", taxPercent: "12"},
	{title: "Party Mixers Box (Sparkling + Tonic)", category: "MIXERS-PARTY-BOXES", description: "A curated box with sparkling water, tonic and soda.", price: "1499.00", taxPercent: "12"},

	{title: "Ochre Signature Mixology Session", category: "EXPERIENCES", description: "90 to 120 minute immersive team mixology session.", price: "4500.00", isExperience: true},
	{title: "Curated Dining & Tasting Experience", category: "EXPERIENCES", description: "Intimate chef and mixologist led tasting for up to 6 guests.", price: "7500.00", isExperience: true},
	{title: "Private Mixology Service", category: "EXPERIENCES", description: "At-home private mixology for your event.", price: "12000.00", isExperience: true},

	{
		title: "Sample Volume Product", slug: "sample-volume-product", category: "Sample",
		units: []seedUnit{{label: "500 ml", price: "120.00", isDefault: true}, {label: "750 ml", price: "170.00"}},
	},
	{
		title: "Sample Size Product", slug: "sample-size-product", category: "Sample",
		units: []seedUnit{{label: "Small", price: "90.00", isDefault: true}, {label: "Large", price: "150.00"}},
	},
}

// Seeds the shop catalogue: categories, products, experiences and a couple of
// products sold in units. Safe to re-run; existing slugs are left alone.
func main() {
	checkOnly := flag.Bool("check", false, "only check the database connection")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	ctx := context.Background()
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Successfully connected to database: %s\n", dbName)
	if *checkOnly {
		return
	}

	if err := database.Migrate(ctx, pool, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	catalogRepo := repository.NewCatalogRepository(pool, logger)
	catalog := service.NewCatalogService(catalogRepo, logger)

	categoryIDs := make(map[string]int64, len(categories))
	for _, name := range categories {
		c := &model.Category{Name: name, Slug: slug.Make(name)}
		if err := catalogRepo.CreateCategory(ctx, c); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create category %s: %v\n", name, err)
			os.Exit(1)
		}
		categoryIDs[name] = c.ID
	}
	fmt.Println("Categories created.")

	created, skipped := 0, 0
	for _, p := range products {
		req := &model.CreateProductRequest{
			Title:        p.title,
			Slug:         p.slug,
			CategoryID:   categoryIDs[p.category],
			Description:  p.description,
			TaxPercent:   decimal.RequireFromString(orZero(p.taxPercent)),
			IsExperience: p.isExperience,
		}
		if req.Slug == "" {
			req.Slug = slug.Make(p.title)
		}
		if p.price != "" {
			price := decimal.RequireFromString(p.price)
			req.Price = &price
		}
		for _, u := range p.units {
			req.Units = append(req.Units, model.SaveProductUnitRequest{
				Label:     u.label,
				Price:     decimal.RequireFromString(u.price),
				IsDefault: u.isDefault,
			})
		}

		_, err := catalog.CreateProduct(ctx, req)
		switch {
		case errors.Is(err, model.ErrSlugTaken):
			skipped++
		case err != nil:
			fmt.Fprintf(os.Stderr, "Failed to create %q: %v\n", p.title, err)
			os.Exit(1)
		default:
			created++
		}
	}

	fmt.Printf("Seeding complete: %d created, %d already present.\n", created, skipped)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
