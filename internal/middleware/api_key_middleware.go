package middleware

import (
	"errors"

	"github.com/atwlabs/semantic-job-matcher/internal/model"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const TenantLocalKey = "tenant"

type TenantResolver interface {
	FindByAPIKey(apiKey string) (*model.Tenant, error)
}

// APIKeyAuth resolves the X-API-Key header to a tenant and stores it in the
// request locals. Every downstream query is scoped by that tenant.
func APIKeyAuth(tenants TenantResolver, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "API key is required",
			})
		}

		tenant, err := tenants.FindByAPIKey(apiKey)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Error("tenant lookup failed", zap.Error(err))
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid API key",
			})
		}

		c.Locals(TenantLocalKey, tenant)
		return c.Next()
	}
}

// TenantFromContext returns the tenant resolved by APIKeyAuth.
func TenantFromContext(c *fiber.Ctx) *model.Tenant {
	tenant, _ := c.Locals(TenantLocalKey).(*model.Tenant)
	return tenant
}
