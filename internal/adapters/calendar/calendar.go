// Package calendar provides read-only gateways to calendar services.
package calendar

import (
	"context"
	"time"

	"github.com/okian/remindr/internal/domain/model"
)

// Gateway returns upcoming events ordered by start time ascending.
// Recurring series are expanded into instances with stable IDs.
type Gateway interface {
	ListUpcoming(ctx context.Context, since time.Time, maxResults int) ([]model.Event, error)
}
