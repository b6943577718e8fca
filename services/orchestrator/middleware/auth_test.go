// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(key string) *gin.Engine {
	router := gin.New()
	router.Use(APIKeyAuth(key))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func ping(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyAuth_EmptyKeyDisablesCheck(t *testing.T) {
	router := protectedRouter("")

	w := ping(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	router := protectedRouter("secret-key")

	w := ping(router, "Bearer secret-key")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuth_CaseInsensitiveScheme(t *testing.T) {
	router := protectedRouter("secret-key")

	w := ping(router, "bearer secret-key")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuth_RejectsWrongKey(t *testing.T) {
	router := protectedRouter("secret-key")

	w := ping(router, "Bearer wrong-key")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthorized")
}

func TestAPIKeyAuth_RejectsMissingHeader(t *testing.T) {
	router := protectedRouter("secret-key")

	w := ping(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAPIKeyAuth_RejectsMalformedHeader(t *testing.T) {
	router := protectedRouter("secret-key")

	tests := []string{
		"secret-key",       // no scheme
		"Basic secret-key", // wrong scheme
		"Bearer",           // no token
	}
	for _, header := range tests {
		w := ping(router, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q should be rejected", header)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"standard", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing", "", ""},
		{"no scheme", "abc123", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"padded token", "Bearer   abc123  ", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request, _ = http.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, extractBearerToken(c))
		})
	}
}
