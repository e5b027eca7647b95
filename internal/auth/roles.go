package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bloxxvault/ticket-bot/internal/platform"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

// OpsRole is the only role accepted by the ops API.
const OpsRole = "ops"

// IsStaff reports whether member carries the configured staff role.
func IsStaff(member *platform.Member, staffRoleID string) bool {
	return member.HasRole(staffRoleID)
}

// RequireStaff rejects non-staff actors for the named action.
func RequireStaff(member *platform.Member, staffRoleID, action string) error {
	if IsStaff(member, staffRoleID) {
		return nil
	}
	return apperrors.NewForbidden("Alleen staff kan " + action + ".")
}

// RequirePanelManager admits guild administrators and staff.
func RequirePanelManager(member *platform.Member, staffRoleID string) error {
	if member != nil && member.Administrator {
		return nil
	}
	if IsStaff(member, staffRoleID) {
		return nil
	}
	return apperrors.NewForbidden("Alleen administrators of staff kunnen het ticketpaneel plaatsen.")
}

// RequireRole ensures the ops principal has one of the allowed roles.
func RequireRole(allowed ...string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
