package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docflow/internal/http/middleware"
	"docflow/internal/service"
	"docflow/internal/workflow"
)

// Deps are the collaborators the routes are served from.
type Deps struct {
	DB        *sql.DB
	Documents service.DocumentService
	Auth      service.AuthService
	// LoginLimiter throttles login and register; nil disables it.
	LoginLimiter *middleware.RateLimiter
	// Gatherer backs /metrics; nil skips the route.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches the document store API to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/docs", SwaggerPage())
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	throttle := func(c *fiber.Ctx) error { return c.Next() }
	if d.LoginLimiter != nil {
		throttle = d.LoginLimiter.Handler()
	}
	api.Post("/auth/login", throttle, Login(d.Auth))
	api.Post("/user/register", throttle, Register(d.Auth))

	docs := api.Group("/document", middleware.Auth(d.Auth))
	docs.Get("/", ListDocuments(d.Documents))
	docs.Post("/", CreateDocument(d.Documents))
	docs.Get("/:id", GetDocument(d.Documents))
	docs.Patch("/:id", UpdateDocument(d.Documents))
	docs.Delete("/:id", DeleteDocument(d.Documents))
	docs.Get("/:id/content", DocumentContent(d.Documents))
	docs.Put("/:id/content", ReplaceContent(d.Documents))
	docs.Post("/:id/send-to-review", TransitionDocument(d.Documents, workflow.Submit))
	docs.Post("/:id/revoke-review", TransitionDocument(d.Documents, workflow.Revoke))
	docs.Post("/:id/change-status", ChangeStatus(d.Documents))
}

// SwaggerPage serves a Swagger UI page backed by the generated /swagger/doc.json.
func SwaggerPage() fiber.Handler {
	const page = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>docflow API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/swagger/doc.json',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
	return func(c *fiber.Ctx) error {
		return c.Type("html").SendString(page)
	}
}
