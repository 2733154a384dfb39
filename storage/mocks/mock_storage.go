package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/autoactions/download-action/storage/types"
)

// MockObjectStorage is a mock implementation of the ObjectStorage interface
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	args := m.Called(ctx, key, reader, metadata)
	return args.Error(0)
}

func (m *MockObjectStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)

	var body io.ReadCloser
	if args.Get(0) != nil {
		body = args.Get(0).(io.ReadCloser)
	}

	return body, args.Error(1)
}

func (m *MockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStorage) List(ctx context.Context, prefix string) ([]types.ObjectInfo, error) {
	args := m.Called(ctx, prefix)

	var objects []types.ObjectInfo
	if args.Get(0) != nil {
		objects = args.Get(0).([]types.ObjectInfo)
	}

	return objects, args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStorage) CheckReachable(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
