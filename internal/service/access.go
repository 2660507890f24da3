package service

// AccessService decides who may run privileged commands
type AccessService struct {
	admins map[int64]struct{}
}

// NewAccessService creates a new access service. An empty admin list privileges nobody.
func NewAccessService(adminIDs []int64) *AccessService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &AccessService{admins: admins}
}

// HasAdmins reports whether any privileged user is configured
func (s *AccessService) HasAdmins() bool {
	return len(s.admins) > 0
}

// IsPrivileged checks if user may force-end pairings
func (s *AccessService) IsPrivileged(userID int64) bool {
	_, ok := s.admins[userID]
	return ok
}
