package domain

// Listing is a sellable item owned by a vendor. Read-only from the checkout
// workflow's perspective.
type Listing struct {
	ID             string
	VendorID       string
	Title          string
	UnitPriceCents int64
	PhotoURL       string
}

// Vendor is the denormalized seller summary returned alongside cart views.
type Vendor struct {
	ID      string
	Name    string
	LogoURL string
}
