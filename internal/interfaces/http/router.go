package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/facturacion-electronica/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Billing     *BillingHandler
	ServiceName string
	Providers   []string
	JWTSecret   string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName, "providers": deps.Providers})
	})

	// Rutas protegidas (requieren Bearer Token)
	billing := app.Group("/api/electronic-billing", AuthMiddleware(deps.JWTSecret))
	billing.Post("/send", RequireScope(jwt.ScopeSend), deps.Billing.Send)
	billing.Post("/validate", RequireScope(jwt.ScopeSend), deps.Billing.Validate)
	billing.Get("/status/:trackId", RequireScope(jwt.ScopeStatus), deps.Billing.Status)
}
