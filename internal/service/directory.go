package service

import (
	"context"
	"strings"

	"relaybot/internal/domain"
	"relaybot/internal/repository"
)

// DirectoryService handles user profile logic
type DirectoryService struct {
	store repository.Store
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(store repository.Store) *DirectoryService {
	return &DirectoryService{store: store}
}

// FindByUserID returns the profile or nil when the user never picked a language
func (s *DirectoryService) FindByUserID(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	u, err := s.store.Users().FindByUserID(ctx, userID)
	return u, storeError("find profile", err)
}

// UpsertLanguage creates the profile or overwrites its language and display name
func (s *DirectoryService) UpsertLanguage(ctx context.Context, userID int64, code, displayName string) (*domain.UserProfile, error) {
	lang, err := domain.ParseLanguage(code)
	if err != nil {
		return nil, err
	}

	u, err := s.store.Users().UpsertLanguage(ctx, userID, lang.Code, strings.TrimSpace(displayName))
	if err != nil {
		return nil, storeError("upsert language", err)
	}
	return u, nil
}

// UpdatePreference sets dialect or location; blank values reset to the default
func (s *DirectoryService) UpdatePreference(ctx context.Context, userID int64, field domain.PreferenceField, value string) (*domain.UserProfile, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		switch field {
		case domain.PreferenceDialect:
			value = domain.DefaultDialect
		case domain.PreferenceLocation:
			value = domain.DefaultLocation
		}
	}

	u, err := s.store.Users().UpdatePreference(ctx, userID, field, value)
	if err != nil {
		return nil, storeError("update "+string(field), err)
	}
	return u, nil
}

// UpdateDialect sets the user's dialect
func (s *DirectoryService) UpdateDialect(ctx context.Context, userID int64, dialect string) (*domain.UserProfile, error) {
	return s.UpdatePreference(ctx, userID, domain.PreferenceDialect, dialect)
}

// UpdateLocation sets the user's location
func (s *DirectoryService) UpdateLocation(ctx context.Context, userID int64, location string) (*domain.UserProfile, error) {
	return s.UpdatePreference(ctx, userID, domain.PreferenceLocation, location)
}

// BulkReset wipes every profile and transcript
func (s *DirectoryService) BulkReset(ctx context.Context) error {
	return storeError("bulk reset", s.store.BulkReset(ctx))
}
