// Command import loads opening raw-material stock from an inventory workbook:
//
//	import -file inventory.xlsx
package main

import (
	"context"
	"flag"
	"fmt"

	"go-rental-ledger/internal/config"
	"go-rental-ledger/internal/database"
	"go-rental-ledger/internal/importer"
	"go-rental-ledger/internal/inventory"
)

func main() {
	file := flag.String("file", "", "path to the .xlsx workbook with an ItemsInventory sheet")
	actor := flag.String("actor", "import", "name recorded in the audit log")
	flag.Parse()

	cfg := config.Load()
	logg := config.GetLogger()
	if *file == "" {
		logg.Fatal("-file is required")
	}

	if err := database.Connect(cfg); err != nil {
		logg.WithError(err).Fatal("database unavailable")
	}

	engine := inventory.NewEngine(database.NewUnitOfWork(database.DB), nil)
	ctx := inventory.WithActor(context.Background(), *actor)

	result, err := importer.New(database.DB, engine).ImportFile(ctx, *file)
	if result != nil {
		for _, skipped := range result.Skipped {
			logg.Warn(skipped)
		}
	}
	if err != nil {
		logg.WithError(err).Fatal("import failed")
	}
	fmt.Printf("imported %d raw item(s), skipped %d\n", result.Created, len(result.Skipped))
}
