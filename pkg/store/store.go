package store

import "karsaazai/pkg/domain"

// Store defines persistence operations for user profiles, support threads,
// and booking context. Users and bookings are owned by the marketplace; this
// service reads them and only writes verification sub-documents and thread
// records.
type Store interface {
	// users
	GetUserByID(id string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	MergeUserVerification(id, key string, doc any) error

	// support threads
	UpsertThread(t domain.Thread) error
	GetThread(id string) (domain.Thread, bool, error)
	ListThreadsByUser(userID string, limit int) ([]domain.Thread, error)
	AppendMessage(msg domain.Message) error
	ListMessages(threadID string, limit int) ([]domain.Message, error)

	// bookings (read-only)
	ListBookings() ([]domain.Booking, error)
	ListBookingsByUser(userID string, limit int) ([]domain.Booking, error)
}
