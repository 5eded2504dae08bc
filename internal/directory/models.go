package directory

import "time"

// Visitor is a registered visiting subject. Credentials and visits reference
// visitors by ID; the directory owns only identity attributes.
type Visitor struct {
	ID            int64     `json:"visitor_id"`
	FullName      string    `json:"full_name"`
	NationalID    string    `json:"national_id"`
	ContactNumber string    `json:"contact_number"`
	CreatedAt     time.Time `json:"created_at"`
}

// Employee is a permanent subject with a pay rate used by earnings estimates.
type Employee struct {
	ID         int64     `json:"employee_id"`
	Name       string    `json:"name"`
	HourlyRate float64   `json:"hourly_rate"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"created_at"`
}

// Site is a physical facility visits are registered against.
type Site struct {
	ID      int64  `json:"site_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Operator is a console user who can drive checkpoints and admin actions.
type Operator struct {
	ID           int64  `json:"operator_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
}
