package service

import (
	"context"
	"fmt"
	"testing"

	"relaybot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMaintenanceService_CleanupExpiredCodes(t *testing.T) {
	tests := []struct {
		name          string
		mockError     error
		expectedError bool
	}{
		{
			name:          "successful cleanup",
			mockError:     nil,
			expectedError: false,
		},
		{
			name:          "database error",
			mockError:     fmt.Errorf("db error"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.NewMockStore()
			store.UserRepo.On("ClearExpiredCodes", mock.Anything, mock.Anything).Return(int64(3), tt.mockError)

			logger := testutil.NewTestLogger()
			pairing := NewPairingService(store, PairingConfig{}, logger)
			service := NewMaintenanceService(pairing, logger)

			err := service.CleanupExpiredCodes(context.Background())

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			store.UserRepo.AssertExpectations(t)
		})
	}
}
