package utils

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	CustomerIDKey contextKey = "customer_id"
	RoleKey       contextKey = "role"
)

func GetCustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	customerIDVal := ctx.Value(CustomerIDKey)
	if customerIDVal == nil {
		return uuid.Nil, false
	}

	customerIDStr, ok := customerIDVal.(string)
	if !ok {
		return uuid.Nil, false
	}

	customerID, err := uuid.Parse(customerIDStr)
	if err != nil {
		return uuid.Nil, false
	}

	return customerID, true
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	roleVal := ctx.Value(RoleKey)
	if roleVal == nil {
		return "", false
	}

	role, ok := roleVal.(string)
	return role, ok
}

func SetCustomerContext(ctx context.Context, customerID uuid.UUID, role string) context.Context {
	ctx = context.WithValue(ctx, CustomerIDKey, customerID.String())
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctx
}
