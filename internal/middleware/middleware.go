package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v3"
)

const (
	// Quiz permissions
	WriteQuizPermission  = "write:quiz"
	DeleteQuizPermission = "delete:quiz"

	// Submission permissions
	ReadAllSubmissionPermission = "read:submission:all"
	DeleteSubmissionPermission  = "delete:submission"

	AdminPermission   = "admin"
	ManagerPermission = "manager"
)

const (
	UserIDHeader          = "X-User-ID"
	UserPermissionsHeader = "X-User-Permissions"

	userIDLocal = "userID"
)

// PermissionRequired lets the request through when X-User-Permissions carries the
// permission or any admin/manager permission.
func PermissionRequired(requiredPermission string) fiber.Handler {
	return func(c fiber.Ctx) error {
		log.Println("Permission required function called from", c.IP(), "Calling", c.Method(), "Request", c.OriginalURL())
		if !HasPermission(c, requiredPermission) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

func HasPermission(c fiber.Ctx, requiredPermission string) bool {
	userPermissions := c.Get(UserPermissionsHeader)
	if userPermissions == "" {
		return false
	}
	for _, perm := range strings.Split(userPermissions, ",") {
		perm = strings.TrimSpace(perm)
		if perm == requiredPermission || strings.HasPrefix(perm, AdminPermission) || strings.HasPrefix(perm, ManagerPermission) {
			return true
		}
	}
	return false
}

// UserRequired rejects requests the gateway did not stamp with a caller id.
func UserRequired() fiber.Handler {
	return func(c fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(UserIDHeader))
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// UserID returns the caller id stored by UserRequired.
func UserID(c fiber.Ctx) string {
	if userID, ok := c.Locals(userIDLocal).(string); ok {
		return userID
	}
	return strings.TrimSpace(c.Get(UserIDHeader))
}
