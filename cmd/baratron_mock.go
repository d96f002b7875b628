package cmd

import (
	"context"

	"github.com/anicoll/baratron-integration/internal/pkg/model"
)

// MockBaratronService is a mock implementation of the BaratronService interface.
type MockBaratronService struct {
	ConnectFunc func(ctx context.Context) error
	GetFunc     func(ctx context.Context) (model.State, error)
	ReadFunc    func(ctx context.Context) (model.Reading, error)
	CloseFunc   func() error
}

func (m *MockBaratronService) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return nil
}

func (m *MockBaratronService) Get(ctx context.Context) (model.State, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return model.State{}, nil
}

func (m *MockBaratronService) Read(ctx context.Context) (model.Reading, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx)
	}
	state, err := m.Get(ctx)
	return model.Reading{State: state}, err
}

func (m *MockBaratronService) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
