package storage

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Open(ctx context.Context, locator string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, locator)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}
