package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the identity service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>pi-fisio-auth Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// Minimal OpenAPI document describing the identity endpoints.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "pi-fisio-auth", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "TokenPair": { "type": "object", "properties": { "accessToken": {"type":"string"}, "refreshToken": {"type":"string"}, "expiresIn": {"type":"integer"} } },
      "Error": { "type": "object", "properties": { "status": {"type":"integer"}, "error": {"type":"string"}, "message": {"type":"string"} } }
    }
  },
  "paths": {
    "/api/auth/login": {
      "post": {
        "summary": "Sign in with an identity provider ID token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["idToken"],"properties":{"idToken":{"type":"string"}}}}}},
        "responses": { "200": { "description": "token pair" }, "401": { "description": "invalid identity token" } }
      }
    },
    "/api/auth/refreshToken": {
      "post": { "summary": "Exchange a refresh token for a new token pair", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["refreshToken"],"properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "token pair" }, "401": { "description": "invalid refresh token or unknown identity" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Current identity and grants", "security": [{"bearer": []}], "responses": { "200": { "description": "identity" }, "401": { "description": "authentication required" } } }
    },
    "/api/v1/users/{id}": {
      "get": { "summary": "Get identity by id", "security": [{"bearer": []}], "responses": { "200": { "description": "identity" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete identity (ADMIN)", "security": [{"bearer": []}], "responses": { "204": { "description": "deleted" }, "403": { "description": "access denied" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
