package auth

import (
	"strings"

	"storefront-service/internal/domain"
)

// Require allows user through when its role is one of roles.
func Require(user *domain.User, roles ...domain.Role) error {
	if user == nil {
		return domain.NewError(domain.KindUnauthorized, "not authenticated")
	}
	for _, r := range roles {
		if user.Role == r {
			return nil
		}
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return domain.Errorf(domain.KindForbidden, "only [%s] allowed to perform this action", strings.Join(names, ", "))
}
