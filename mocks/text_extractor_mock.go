package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockTextExtractor struct {
	mock.Mock
}

func (m *MockTextExtractor) ExtractText(ctx context.Context, resume []byte) (string, error) {
	args := m.Called(ctx, resume)

	return args.String(0), args.Error(1)
}
