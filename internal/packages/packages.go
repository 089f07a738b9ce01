// Package packages holds the service package catalogue and starts package
// purchases against the payment gateway.
package packages

import "errors"

var (
	ErrPackageNotFound = errors.New("packages: package not found")
)

// Package is a purchasable service package. DurationDays of 0 means a
// pay-per-swap package with no expiry.
type Package struct {
	PackageID    int64   `json:"packageId"`
	PackageName  string  `json:"packageName"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	DurationDays int     `json:"durationDays,omitempty"`
	SwapQuota    int     `json:"swapQuota,omitempty"` // 0 = unlimited within duration
}

// Catalogue is the hardcoded package catalogue.
var Catalogue = []Package{
	{
		PackageID:    1,
		PackageName:  "Basic Monthly",
		Description:  "Up to 10 battery swaps per month",
		Price:        19.99,
		DurationDays: 30,
		SwapQuota:    10,
	},
	{
		PackageID:    2,
		PackageName:  "Standard Monthly",
		Description:  "Up to 30 battery swaps per month",
		Price:        29.99,
		DurationDays: 30,
		SwapQuota:    30,
	},
	{
		PackageID:    3,
		PackageName:  "Premium Monthly",
		Description:  "Unlimited battery swaps for 30 days",
		Price:        49.99,
		DurationDays: 30,
	},
	{
		PackageID:   4,
		PackageName: "Pay As You Go",
		Description: "Single battery swap, no subscription",
		Price:       4.99,
		SwapQuota:   1,
	},
}

// Find returns the catalogue package with the given id.
func Find(packageID int64) (*Package, error) {
	for i := range Catalogue {
		if Catalogue[i].PackageID == packageID {
			return &Catalogue[i], nil
		}
	}
	return nil, ErrPackageNotFound
}
