package http

import (
	"context"

	"github.com/example/confidential-scheduler/internal/application"
)

type contextKey string

const (
	principalContextKey  contextKey = "principal"
	employeeIDContextKey contextKey = "employee_id"
	teamIDContextKey     contextKey = "team_id"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithEmployeeID injects the employee identifier resolved from the request path.
func ContextWithEmployeeID(ctx context.Context, employeeID string) context.Context {
	return context.WithValue(ctx, employeeIDContextKey, employeeID)
}

// EmployeeIDFromContext extracts an employee identifier previously associated with the context.
func EmployeeIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(employeeIDContextKey).(string)
	return id, ok
}

// ContextWithTeamID injects the team identifier resolved from the request path.
func ContextWithTeamID(ctx context.Context, teamID string) context.Context {
	return context.WithValue(ctx, teamIDContextKey, teamID)
}

// TeamIDFromContext extracts a team identifier previously associated with the context.
func TeamIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(teamIDContextKey).(string)
	return id, ok
}
