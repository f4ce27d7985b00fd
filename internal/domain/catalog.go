package domain

// Vehicle is the catalog view of a rentable vehicle
type Vehicle struct {
	ID       string   `json:"id"`
	SellerID string   `json:"seller_id"`
	Name     string   `json:"name"`
	Plate    string   `json:"plate,omitempty"`
	RatePlan RatePlan `json:"rate_plan"`
	Active   bool     `json:"active"`
}

// Customer is the directory view of a renter
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}
