package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"vialerp/internal/db"
	applog "vialerp/internal/log"
	"vialerp/models"
)

// Codes of the seeded products.
const (
	MugCode    = "TAZA-PERS"
	DesignCode = "DISENO"
)

var instances atomic.Int64

// New returns an in-memory sqlite database seeded with a small print-shop
// catalog. Every call gets its own database. Derived combinations are not
// seeded; run a sync to build them.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	dsn := fmt.Sprintf("file:vialerp-mock-%d?mode=memory&cache=shared", instances.Add(1))
	database, err := db.OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")
	tx := database.WithContext(ctx)

	mug := models.Ingredient{
		Name:             "Taza cerámica 11oz",
		Unit:             "unidad",
		BaseCost:         decimal.RequireFromString("12.00"),
		Variants:         datatypes.JSON(`[{"nombre":"Color","valores":["Blanco:#ffffff","Negro:#000000"]}]`),
		PriceAdjustments: datatypes.JSON(`{"Color:Negro":{"diferenciaPrecio":3}}`),
	}
	vinyl := models.Ingredient{
		Name:     "Vinil de sublimación",
		Unit:     "hoja",
		BaseCost: decimal.RequireFromString("2.50"),
		Variants: datatypes.JSON(`{"variantes":[{"nombre":"Tamaño","posibilidades":["Pequeño","Grande"]}]}`),
		PriceAdjustments: datatypes.JSON(`{
			"Tamaño:Pequeño|Sucursal:La Paz":{"precioVariante":2.5},
			"Tamaño:Pequeño|Sucursal:Santa Cruz":{"precioVariante":2.8},
			"Tamaño:Grande|Sucursal:La Paz":{"precioVariante":4},
			"Tamaño:Grande|Sucursal:Santa Cruz":{"precioVariante":4.5}
		}`),
	}
	box := models.Ingredient{
		Name:     "Caja de cartón",
		Unit:     "unidad",
		BaseCost: decimal.RequireFromString("1.20"),
	}
	ink := models.Ingredient{
		Name:     "Tinta de sublimación",
		Unit:     "ml",
		BaseCost: decimal.RequireFromString("0.35"),
	}

	ingredients := []*models.Ingredient{&mug, &vinyl, &box, &ink}
	for _, ingredient := range ingredients {
		if err := tx.Create(ingredient).Error; err != nil {
			return err
		}
	}

	products := []*models.Product{
		{
			Code:      MugCode,
			Name:      "Taza personalizada",
			BasePrice: decimal.RequireFromString("35.00"),
			Recipe: []models.RecipeLine{
				{IngredientID: mug.ID, Quantity: decimal.NewFromInt(1), Position: 1},
				{IngredientID: vinyl.ID, Quantity: decimal.NewFromInt(1), Position: 2},
				{IngredientID: box.ID, Quantity: decimal.NewFromInt(1), Position: 3},
				{IngredientID: ink.ID, Quantity: decimal.NewFromInt(2), Position: 4},
			},
		},
		{
			Code:      DesignCode,
			Name:      "Servicio de diseño",
			BasePrice: decimal.RequireFromString("50.00"),
		},
	}
	for _, product := range products {
		if err := tx.Create(product).Error; err != nil {
			return err
		}
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
