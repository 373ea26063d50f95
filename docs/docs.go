// Package docs holds the generated OpenAPI definition served at /swagger.
// Code generated by swag init; edits belong in the route annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/metrics": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Compute the full metric report",
                "parameters": [
                    {"type": "array", "items": {"type": "string"}, "name": "repo", "in": "query", "required": true},
                    {"type": "string", "name": "date", "in": "query"},
                    {"type": "string", "enum": ["repo", "project", "community"], "name": "level", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"},
                    "502": {"description": "Bad Gateway"}
                }
            }
        },
        "/metrics/{name}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Compute a single metric",
                "parameters": [
                    {"type": "string", "name": "name", "in": "path", "required": true},
                    {"type": "array", "items": {"type": "string"}, "name": "repo", "in": "query", "required": true},
                    {"type": "string", "name": "date", "in": "query"},
                    {"type": "string", "enum": ["repo", "project", "community"], "name": "level", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"},
                    "502": {"description": "Bad Gateway"}
                }
            }
        },
        "/snapshots": {
            "get": {
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "List metric snapshots",
                "parameters": [
                    {"type": "string", "name": "label", "in": "query", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"},
                    "503": {"description": "Service Unavailable"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "Compute and persist a metric snapshot",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request"},
                    "500": {"description": "Internal Server Error"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/snapshots/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["snapshots"],
                "summary": "Fetch the latest metric snapshot",
                "parameters": [
                    {"type": "string", "name": "label", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request"},
                    "404": {"description": "Not Found"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Repository Health Monitor API",
	Description:      "API for computing community and repository health metrics",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
