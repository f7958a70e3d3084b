// Package middleware provides HTTP middleware bridging instrumented web
// handlers to the agent.
//
// Trace opens one tracing context and one entry span per request, joins
// upstream traces via the X-Trace-ID header, and injects the context into
// the request so handlers can open child spans:
//
//	router.Use(middleware.Trace(ag))
//
//	router.GET("/orders", func(c *gin.Context) {
//		tc, _ := tracing.FromContext(c.Request.Context())
//		span := tc.CreateLocalSpan("load-orders")
//		defer tc.StopSpan(span)
//		// ...
//	})
package middleware
