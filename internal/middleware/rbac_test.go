package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newOverrideApp(role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Use(RequireRole("teacher", "admin"))
	app.Put("/units/3/override", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRequireRoleAllowsGradingStaff(t *testing.T) {
	for _, role := range []string{"teacher", "admin", "Teacher"} {
		app := newOverrideApp(role)
		req := httptest.NewRequest(http.MethodPut, "/units/3/override", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "role %q must pass", role)
	}
}

func TestRequireRoleRejectsStudents(t *testing.T) {
	app := newOverrideApp("student")
	req := httptest.NewRequest(http.MethodPut, "/units/3/override", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	app := newOverrideApp("")
	req := httptest.NewRequest(http.MethodPut, "/units/3/override", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
