package types

// Address represents a physical address
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"` // ISO 3166-1 alpha-2
}

// NewAddress creates a new address
func NewAddress(street, city, postalCode string) Address {
	return Address{
		Street:     street,
		City:       city,
		PostalCode: postalCode,
		Country:    "US",
	}
}

// ContactInfo represents contact information
type ContactInfo struct {
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Mobile string `json:"mobile,omitempty"`
}
