package service

import (
	"context"

	"go.uber.org/zap"
)

// CodeCleaner drops expired connection codes
type CodeCleaner interface {
	CleanupExpiredCodes(ctx context.Context) (int64, error)
}

// MaintenanceService runs periodic housekeeping
type MaintenanceService struct {
	codes  CodeCleaner
	logger *zap.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(codes CodeCleaner, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{
		codes:  codes,
		logger: logger,
	}
}

// CleanupExpiredCodes removes connection codes past their expiry
func (s *MaintenanceService) CleanupExpiredCodes(ctx context.Context) error {
	s.logger.Info("Starting cleanup of expired connection codes")

	n, err := s.codes.CleanupExpiredCodes(ctx)
	if err != nil {
		s.logger.Error("Failed to cleanup expired codes", zap.Error(err))
		return err
	}

	s.logger.Info("Cleanup completed successfully", zap.Int64("codes_cleared", n))
	return nil
}
