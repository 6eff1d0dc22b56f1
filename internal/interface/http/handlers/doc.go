// Package handlers contains reusable HTTP building blocks that do not depend
// on the API routes.
//
// # Health Checks
//
// The HealthChecker interface allows registering multiple named health checks
// that are executed in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("store", handlers.NewPingCheck(store))
//	checker.AddCheck("sessions", handlers.NewPingCheck(sessions))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Warn("health check failed", zap.String("message", status.Message))
//	}
package handlers
