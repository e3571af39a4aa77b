package bank

import (
	"errors"
	"fmt"
)

// Account is a bank account record.
type Account struct {
	ID         string  `json:"_id"`
	Type       string  `json:"type"`
	Nickname   string  `json:"nickname"`
	Rewards    int     `json:"rewards"`
	Balance    float64 `json:"balance"`
	CustomerID string  `json:"customer_id"`
}

// Purchase is a purchase transaction on an account. Amounts are stored
// positive upstream; presentation-layer sign conventions are applied by
// callers, not here.
type Purchase struct {
	ID           string  `json:"_id"`
	MerchantID   string  `json:"merchant_id"`
	Medium       string  `json:"medium"`
	PurchaseDate string  `json:"purchase_date"`
	Amount       float64 `json:"amount"`
	Status       string  `json:"status"`
	Description  string  `json:"description"`
}

// Transfer is a balance transfer between two accounts.
type Transfer struct {
	ID              string  `json:"_id"`
	Type            string  `json:"type"`
	TransactionDate string  `json:"transaction_date"`
	Status          string  `json:"status"`
	Medium          string  `json:"medium"`
	PayerID         string  `json:"payer_id"`
	PayeeID         string  `json:"payee_id"`
	Amount          float64 `json:"amount"`
	Description     string  `json:"description"`
}

// TransferRequest is the payload for creating a transfer. The upstream
// rejects transfers without a transaction_date.
type TransferRequest struct {
	Medium          string  `json:"medium"`
	PayeeID         string  `json:"payee_id"`
	Amount          float64 `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
	Description     string  `json:"description,omitempty"`
}

// Customer is a bank customer record. Used when seeding demo data.
type Customer struct {
	ID        string  `json:"_id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Address   Address `json:"address"`
}

// Address is a postal address as the upstream API represents it.
type Address struct {
	StreetNumber string `json:"street_number"`
	StreetName   string `json:"street_name"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
}

// Merchant is a merchant record. Used when seeding demo data.
type Merchant struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Address  Address `json:"address"`
	Geocode  Geocode `json:"geocode"`
}

// Geocode is a lat/lng pair.
type Geocode struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PurchaseRequest is the payload for creating a purchase when seeding.
type PurchaseRequest struct {
	MerchantID   string  `json:"merchant_id"`
	Medium       string  `json:"medium"`
	PurchaseDate string  `json:"purchase_date"`
	Amount       float64 `json:"amount"`
	Description  string  `json:"description,omitempty"`
}

// APIError is returned when the banking API responds with a non-success
// status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bank api: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}

// IsValidation reports whether err is an APIError with a 4xx status other
// than 404, which the upstream uses for malformed or rejected requests.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != 404
}
