package model

// Overview aggregates global counts for the admin dashboard
type Overview struct {
	TotalAccounts        int64         `json:"total_accounts"`
	Admins               int64         `json:"admins"`
	ActiveCompanies      int64         `json:"active_companies"`
	ActiveCustomers      int64         `json:"active_customers"`
	TotalProducts        int64         `json:"total_products"`
	DepletedProducts     int64         `json:"depleted_products"`
	ExpiringSoonProducts int64         `json:"expiring_soon_products"`
	Requests             RequestCounts `json:"requests"`
}

// StatusCount is a single row of a GROUP BY estado query
type StatusCount struct {
	Status string
	Count  int64
}
