package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/sentinelshop/storefront-api/config"
	"github.com/sentinelshop/storefront-api/internal/app/repository"
	"github.com/sentinelshop/storefront-api/internal/db"
)

func main() {
	template := flag.String("template", "", "write an empty catalog workbook to this path and exit")
	yes := flag.Bool("yes", false, "import without asking for confirmation")
	flag.Parse()

	if *template != "" {
		if err := writeTemplate(*template); err != nil {
			log.Fatal("Failed to write template:", err)
		}
		fmt.Printf("Template written to %s\n", *template)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Without a workbook the built-in catalog is loaded.
	if flag.NArg() == 0 {
		if err := db.Seed(); err != nil {
			log.Fatal("Failed to seed catalog:", err)
		}
		fmt.Println("Default catalog seeded.")
		return
	}

	filePath := flag.Arg(0)
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	products, report, err := readProductsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	report.Print(os.Stdout)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	productRepo := repository.NewProductRepository(db.GetDB())
	ctx := context.Background()
	for i := range products {
		if err := productRepo.UpsertByName(ctx, &products[i]); err != nil {
			log.Fatalf("Failed to import %q: %v", products[i].Name, err)
		}
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total products imported: %d\n", len(products))
}
