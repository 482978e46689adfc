package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// MembershipDirectory stores the ordered member list for each team. Appends
// are unconditional; duplicate entries are the caller's responsibility.
type MembershipDirectory interface {
	AddMember(ctx context.Context, team, employee string) error
	Members(ctx context.Context, team string) ([]string, error)
}

// DirectoryService maintains team membership.
type DirectoryService struct {
	directory MembershipDirectory
	logger    *slog.Logger
}

// NewDirectoryService wires dependencies for membership operations.
func NewDirectoryService(directory MembershipDirectory, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{directory: directory, logger: defaultLogger(logger)}
}

func (s *DirectoryService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DirectoryService", operation, attrs...)
}

// AddMember appends an employee to a team's ordered member list.
// Administrator only.
func (s *DirectoryService) AddMember(ctx context.Context, principal Principal, team, employee string) (err error) {
	if s == nil {
		return fmt.Errorf("DirectoryService is nil")
	}
	if s.directory == nil {
		return fmt.Errorf("membership directory not configured")
	}

	team = strings.TrimSpace(team)
	employee = strings.TrimSpace(employee)
	logger := s.loggerWith(ctx, "AddMember", "team_id", team, "employee_id", employee)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "member addition failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member added")
	}()

	if err = requireAdmin(principal); err != nil {
		return
	}
	if team == "" || employee == "" {
		err = fmt.Errorf("team and employee identifiers are required")
		return
	}

	err = s.directory.AddMember(ctx, team, employee)
	return
}

// Members returns the ordered member list for a team. Readable by any
// recognized employee.
func (s *DirectoryService) Members(ctx context.Context, principal Principal, team string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("DirectoryService is nil")
	}
	if s.directory == nil {
		return nil, fmt.Errorf("membership directory not configured")
	}
	if principal.UserID == "" && !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	return s.directory.Members(ctx, team)
}
