package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the Haiku+ API.
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
    <title>Haiku+ API</title>
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

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "Haiku+", "version": "v1.0.0" },
  "components": {
    "securitySchemes": {
      "bearer": { "type": "http", "scheme": "bearer", "description": "Google ID token or OAuth access token" },
      "code": { "type": "apiKey", "in": "header", "name": "X-OAuth-Code", "description": "<code> [redirect_uri='<uri>']" },
      "session": { "type": "apiKey", "in": "cookie", "name": "HaikuSessionId" }
    },
    "schemas": {
      "User": { "type": "object", "properties": {
        "id": {"type":"string"}, "google_plus_id": {"type":"string"}, "google_display_name": {"type":"string"},
        "google_photo_url": {"type":"string"}, "google_profile_url": {"type":"string"},
        "last_updated": {"type":"string","format":"date-time","nullable":true} } },
      "Haiku": { "type": "object", "properties": {
        "id": {"type":"string"}, "author": {"$ref":"#/components/schemas/User"}, "title": {"type":"string"},
        "line_one": {"type":"string"}, "line_two": {"type":"string"}, "line_three": {"type":"string"},
        "votes": {"type":"integer"}, "creation_time": {"type":"string","format":"date-time"},
        "content_url": {"type":"string"}, "content_deep_link_id": {"type":"string"},
        "call_to_action_url": {"type":"string"}, "call_to_action_deep_link_id": {"type":"string"} } },
      "Message": { "type": "object", "properties": { "message": {"type":"string"} } }
    }
  },
  "security": [ {"bearer": []}, {"code": []}, {"session": []} ],
  "paths": {
    "/api/users/me": {
      "get": { "summary": "Current user with cached profile", "responses": { "200": { "description": "user" }, "401": { "description": "credential required (see WWW-Authenticate / X-OAuth-Code)" }, "500": { "description": "provider unreachable" } } }
    },
    "/api/signout": {
      "post": { "summary": "Unbind the session from its user", "security": [], "responses": { "200": { "description": "null" } } }
    },
    "/api/disconnect": {
      "post": { "summary": "Revoke the Google grant and delete the account and its haikus", "responses": { "200": { "description": "disconnected" }, "401": { "description": "credential required" }, "500": { "description": "could not revoke token" } } }
    },
    "/api/haikus": {
      "get": { "summary": "List haikus, newest first", "security": [],
        "parameters": [ { "name": "filter", "in": "query", "schema": { "type": "string", "enum": ["circles"] }, "description": "circles: only haikus by people in your circles (requires authentication)" } ],
        "responses": { "200": { "description": "haikus" }, "401": { "description": "credential required for filter=circles" } } },
      "post": { "summary": "Create a haiku",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"title":{"type":"string"},"line_one":{"type":"string"},"line_two":{"type":"string"},"line_three":{"type":"string"}}}}}},
        "responses": { "200": { "description": "created haiku" }, "401": { "description": "credential required" }, "405": { "description": "demo mode" } } }
    },
    "/api/haikus/{id}": {
      "get": { "summary": "Get a haiku", "security": [], "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ], "responses": { "200": { "description": "haiku" }, "404": { "description": "not found" } } }
    },
    "/api/haikus/{id}/vote": {
      "post": { "summary": "Vote for a haiku", "parameters": [ { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } } ], "responses": { "200": { "description": "haiku with new vote count" }, "401": { "description": "credential required" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
