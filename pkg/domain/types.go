package domain

import "time"

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

// Message senders within a support thread.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// User mirrors the marketplace user profile document. This service only reads
// profiles and merges verification sub-documents into them; accounts are owned
// by the auth provider.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Email        string         `json:"email,omitempty"`
	Role         UserRole       `json:"role"`
	Verification map[string]any `json:"verification,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Thread is a persisted support conversation between one user and the assistant.
type Thread struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	LastMessage string    `json:"lastMessage"`
	Language    string    `json:"language,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Message is one entry in a thread's ordered log.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// Booking is read-only context from the marketplace: recent bookings feed the
// support prompt, and the full collection feeds admin analytics. Price is kept
// untyped because historical documents stored it as number or string.
type Booking struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId,omitempty"`
	ProviderID string    `json:"providerId,omitempty"`
	Status     string    `json:"status"`
	Price      any       `json:"price,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CNICDetails is the structured result of identity-document extraction.
type CNICDetails struct {
	Name         string `json:"name"`
	FatherName   string `json:"fatherName"`
	CNICNumber   string `json:"cnicNumber"`
	DateOfBirth  string `json:"dob"`
	DateOfIssue  string `json:"dateOfIssue,omitempty"`
	DateOfExpiry string `json:"dateOfExpiry,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Metrics is the admin analytics snapshot, computed per request.
type Metrics struct {
	Users    UserMetrics    `json:"users"`
	Bookings BookingMetrics `json:"bookings"`
}

type UserMetrics struct {
	Total     int `json:"total"`
	Customers int `json:"customers"`
	Workers   int `json:"workers"`
	Admins    int `json:"admins"`
}

type BookingMetrics struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"byStatus"`
	TotalRevenue float64        `json:"totalRevenue"`
}
