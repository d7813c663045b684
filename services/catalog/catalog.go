package catalog

// Product is a catalog entry. Price is in minor currency units, the tax
// tariff in basis points.
type Product struct {
	UID                string
	Description        string
	UnitPriceInCents   int64
	TaxRateBasisPoints int64
}

type Catalog interface {
	Lookup(uid string) (Product, bool)
}

type staticCatalog struct {
	products map[string]Product
}

// New returns the merchant's demo catalog. A real merchant would back this
// with its product database.
func New() Catalog {
	products := map[string]Product{}
	for _, p := range []Product{
		{
			UID:                "prod_tennis_shoes",
			Description:        "Asics Gel Lyte 3",
			UnitPriceInCents:   12000,
			TaxRateBasisPoints: 2100,
		},
		{
			UID:                "prod_tennis_racket",
			Description:        "Babolat Pure Strike 98",
			UnitPriceInCents:   23000,
			TaxRateBasisPoints: 2100,
		},
		{
			UID:                "prod_tennis_balls",
			Description:        "Dunlop Fort All Court",
			UnitPriceInCents:   300,
			TaxRateBasisPoints: 1000,
		},
		{
			UID:                "prod_grip_tape",
			Description:        "Wilson Pro Overgrip",
			UnitPriceInCents:   550,
			TaxRateBasisPoints: 1000,
		},
	} {
		products[p.UID] = p
	}

	return &staticCatalog{
		products: products,
	}
}

func (c *staticCatalog) Lookup(uid string) (Product, bool) {
	product, found := c.products[uid]
	return product, found
}
