package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/uml-editor-backend/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/uml-editor-backend/internal/middleware" // import middleware for JWT authentication and principals
)

// RegisterRoutes registers routes that do not depend on any handler
// state.  Currently it exposes only a health check, which load balancers
// and monitoring systems use to verify that the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.Health)
}

// RegisterAuth registers registration, login and the protected profile
// endpoint. Register and login are public; /me requires a valid bearer.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/register", a.Register)
	e.POST("/login", a.Login)
	e.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterProjects registers the project CRUD surface. Every route
// requires a valid bearer; ownership checks happen in the handlers.
func RegisterProjects(e *echo.Echo, p *handler.ProjectHandler, jwtSecret string) {
	g := e.Group("", middleware.JWTAuth(jwtSecret))
	g.POST("/projects", p.Create)
	g.GET("/projects", p.List)
	g.GET("/projects/:id", p.Get)
	g.DELETE("/projects/:id", p.Delete)
	g.GET("/projects/:id/diagrams", p.ListDiagrams)
}

// RegisterDiagrams registers the diagram-scoped endpoints. Creation
// requires a bearer; the :ref routes accept an optional credential (share
// links work anonymously) and run the authorization gate themselves, so
// they only get the principal-extraction middleware.
func RegisterDiagrams(e *echo.Echo, d *handler.DiagramHandler, s *handler.StreamHandler, jwtSecret string) {
	e.POST("/diagrams", d.Create, middleware.JWTAuth(jwtSecret))

	g := e.Group("", middleware.Principal(jwtSecret))
	g.GET("/diagrams/:ref", d.Get)
	g.PUT("/diagrams/:ref", d.Update)
	g.DELETE("/diagrams/:ref", d.Delete)
	g.GET("/diagrams/:ref/stream", s.Stream)
}

// RegisterShares registers share creation/revocation (bearer) and the
// public token lookup.
func RegisterShares(e *echo.Echo, h *handler.ShareHandler, jwtSecret string) {
	e.POST("/shares", h.Create, middleware.JWTAuth(jwtSecret))
	e.DELETE("/shares/:token", h.Revoke, middleware.JWTAuth(jwtSecret))
	e.GET("/shares/:token", h.Get)
}
