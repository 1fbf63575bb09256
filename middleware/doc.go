// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# CORS Middleware

Enable credentialed cross-origin requests for the web client:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-CSRFToken.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.MessageResponse(w, http.StatusCreated, "account created")
	middleware.ErrorResponse(w, http.StatusNotFound, "poll not found")

# Validation

Request structs carry `validate` tags (go-playground/validator). Validate
returns a message per failing JSON field, ready for a 400:

	if fields := middleware.Validate(req); fields != nil {
		middleware.ValidationErrorResponse(w, fields)
		return
	}

# Rate Limiting

A token bucket per client IP, evicted after an idle window:

	limiter := middleware.NewRateLimiter(rate.Every(time.Second), 10, 10*time.Minute)
	mux.HandleFunc("POST /login", limiter.Limit(h.Login))

# Client IP Extraction

	ip := middleware.GetClientIP(r)

Honors X-Forwarded-For, then X-Real-IP, then RemoteAddr.
*/
package middleware
