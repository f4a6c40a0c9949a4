package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing

    "github.com/iliyamo/restaurant-table-reservation/internal/handler"    // import the handlers that implement business logic
    "github.com/iliyamo/restaurant-table-reservation/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
    // Map the GET request at path "/healthz" to the Health handler.  This
    // endpoint can be used by load balancers or monitoring systems to verify
    // that the service is up and running.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes.  Unauthenticated
// operations live under /v1/auth; everything else on the API expects a
// bearer token issued here.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
    g := e.Group("/v1/auth")
    // Register a POST endpoint to handle staff login at /v1/auth/login.
    g.POST("/login", a.Login)
}

// RegisterAssignment registers the table assignment routes.  All of
// them require a valid access token and a staff role; quoting and
// validation are read only, the session routes mutate state.
func RegisterAssignment(e *echo.Echo, h *handler.AssignmentHandler, jwtSecret string) {
    auth := e.Group("/v1")
    // Apply the JWTAuth middleware to the protected group using the provided secret.
    auth.Use(middleware.JWTAuth(jwtSecret))
    // Both staff and managers may drive assignments; the middleware
    // rejects requests with missing or unknown roles.
    auth.Use(middleware.RequireRole("STAFF", "MANAGER"))

    // Ranked candidate plans for a booking.
    auth.GET("/bookings/:id/quote", h.Quote)
    // Dry-run validation of a manual selection.
    auth.POST("/bookings/:id/validate", h.Validate)
    // Open (or fetch) the booking's assignment session.
    auth.POST("/bookings/:id/session", h.OpenSession)
    // Propose or hold a table selection.
    auth.POST("/bookings/:id/session/selection", h.UpdateSelection)
    // Commit the held selection into allocations.
    auth.POST("/bookings/:id/session/confirm", h.ConfirmSession)
    // Abandon the session and release its hold.
    auth.DELETE("/bookings/:id/session", h.CancelSession)
}
