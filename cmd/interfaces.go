package cmd

import (
	"context"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
)

// BaratronService is what the commands need from a device client.
type BaratronService interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context) (model.State, error)
	Read(ctx context.Context) (model.Reading, error)
	Close() error
}

type readingSink interface {
	Update(reading model.Reading)
	Fail(err error)
}

type readingPublisher interface {
	PublishReading(ctx context.Context, reading model.Reading) error
}
