package audit

import (
	"context"

	id "github.com/ip-fomin/LaborX-backend/pkg/domain"
)

// Sink receives emitted events. Kafka forwarders and stores implement it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a queryable sink, used as the publisher's primary destination.
type Store interface {
	Sink
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]Event, error)
}
