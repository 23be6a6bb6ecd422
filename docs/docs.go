// Package docs holds the OpenAPI description served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/api/v1/auth/login": {
            "post": {
                "tags": ["auth"], "summary": "Exchange credentials for an access token",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.loginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/user/register": {
            "post": {
                "tags": ["auth"], "summary": "Create an account and return its access token",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.tokenResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "List documents visible to the caller",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "default": 1, "description": "1-based page", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "page size (max 100)", "name": "size", "in": "query"},
                    {"type": "string", "default": "createdAt,desc", "description": "field,dir", "name": "sort", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Page"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Upload a PDF as a new DRAFT document",
                "consumes": ["multipart/form-data"], "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "description": "document name", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "description": "initial status (DRAFT)", "name": "status", "in": "formData"},
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Document"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Get a document",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Rename a document",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.renameRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Delete a document",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document/{id}/content": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Stream the PDF content of a document",
                "produces": ["application/pdf"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Replace the PDF of a DRAFT document",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document/{id}/send-to-review": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Submit a DRAFT for review",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document/{id}/revoke-review": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Withdraw a document from review",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        },
        "/api/v1/document/{id}/change-status": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["documents"], "summary": "Move a document to a target status",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.changeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Document"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.errorPayload"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handler.errorPayload"}}
                }
            }
        }
    },
    "definitions": {
        "handler.changeStatusRequest": {"type": "object", "properties": {"status": {"type": "string"}}},
        "handler.errorEnvelope": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}},
        "handler.errorPayload": {"type": "object", "properties": {"error": {"$ref": "#/definitions/handler.errorEnvelope"}, "request_id": {"type": "string"}}},
        "handler.loginRequest": {"type": "object", "properties": {"email": {"type": "string"}, "password": {"type": "string"}}},
        "handler.registerRequest": {"type": "object", "properties": {"email": {"type": "string"}, "fullName": {"type": "string"}, "password": {"type": "string"}, "role": {"type": "string", "enum": ["USER", "REVIEWER"]}}},
        "handler.renameRequest": {"type": "object", "properties": {"name": {"type": "string"}}},
        "handler.tokenResponse": {"type": "object", "properties": {"access_token": {"type": "string"}}},
        "model.Creator": {"type": "object", "properties": {"email": {"type": "string"}, "fullName": {"type": "string"}, "id": {"type": "string"}, "role": {"type": "string"}}},
        "model.Document": {"type": "object", "properties": {
            "createdAt": {"type": "string"}, "creator": {"$ref": "#/definitions/model.Creator"}, "fileUrl": {"type": "string"},
            "id": {"type": "string"}, "name": {"type": "string"},
            "status": {"type": "string", "enum": ["DRAFT", "READY_FOR_REVIEW", "UNDER_REVIEW", "APPROVED", "DECLINED", "REVOKE"]},
            "updatedAt": {"type": "string"}
        }},
        "model.Page": {"type": "object", "properties": {"count": {"type": "integer"}, "results": {"type": "array", "items": {"$ref": "#/definitions/model.Document"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "docflow Document Store API",
	Description:      "Document review workflow: upload PDFs, submit for review, approve or decline.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
