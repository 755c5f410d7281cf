package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"karsaazai/pkg/domain"
)

// Metrics scans the full users and bookings collections and aggregates them.
// O(n) per call; acceptable only because the route is admin-only and
// low-frequency.
func (a *App) Metrics() (domain.Metrics, error) {
	users, err := a.store.ListUsers()
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("list users: %w", err)
	}
	bookings, err := a.store.ListBookings()
	if err != nil {
		return domain.Metrics{}, fmt.Errorf("list bookings: %w", err)
	}
	return aggregateMetrics(users, bookings), nil
}

func aggregateMetrics(users []domain.User, bookings []domain.Booking) domain.Metrics {
	m := domain.Metrics{
		Users:    domain.UserMetrics{Total: len(users)},
		Bookings: domain.BookingMetrics{Total: len(bookings), ByStatus: map[string]int{}},
	}
	for _, u := range users {
		switch u.Role {
		case domain.RoleProvider:
			m.Users.Workers++
		case domain.RoleAdmin:
			m.Users.Admins++
		default:
			// unset roles count as customers
			m.Users.Customers++
		}
	}
	for _, b := range bookings {
		status := strings.TrimSpace(b.Status)
		if status == "" {
			status = "unknown"
		}
		m.Bookings.ByStatus[status]++
		if price, ok := coercePrice(b.Price); ok {
			m.Bookings.TotalRevenue += price
		}
	}
	return m
}

// coercePrice converts the free-form stored price to a number. Non-numeric
// values are skipped, not treated as zero.
func coercePrice(v any) (float64, bool) {
	switch p := v.(type) {
	case float64:
		return p, true
	case float32:
		return float64(p), true
	case int:
		return float64(p), true
	case int64:
		return float64(p), true
	case json.Number:
		f, err := p.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ExplainMetrics asks the chat model for a short narrative over a metrics
// snapshot supplied by the admin client.
func (a *App) ExplainMetrics(ctx context.Context, metrics json.RawMessage) (string, error) {
	if len(metrics) == 0 {
		return "", requiredError("metrics")
	}
	system := "You are an analytics assistant for a home-services marketplace. Explain the metrics snapshot in a few short sentences for a non-technical operations manager. Mention notable imbalances."
	return a.chat.GenerateText(ctx, system, string(metrics))
}
