// Package handlers contains HTTP handler interfaces, implementations, and middleware.
//
// This package provides:
//   - Health check interfaces and implementations
//   - Token-based authentication (JWT)
//   - Reusable middleware components
//
// # Health Checks
//
// CompositeHealthChecker runs named probes in parallel and folds them into
// one status:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("database", handlers.NewDatabaseCheck(db))
//	checker.AddCheck("cache", handlers.NewCacheCheck(cache))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Authentication
//
// TokenManager issues and verifies signed access tokens. RequireAuth wraps
// protected routes and attaches the caller Identity to the request context:
//
//	tokens := handlers.NewTokenManager(secret, 24*time.Hour)
//	protected := handlers.RequireAuth(tokens)(myHandler)
//
//	// Inside a handler:
//	id, ok := handlers.IdentityFromContext(r.Context())
//
// # Middleware
//
// The package provides several reusable middleware components:
//
//	handler := handlers.ChainHandler(
//	    myHandler,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(1<<20),
//	    handlers.RequireAuth(tokens),
//	)
//
// When implementing health checks:
//   - Use timeouts to prevent slow checks from blocking the response
//   - Include critical dependencies like database and cache
//   - Keep checks fast (< 1 second ideally)
package handlers
