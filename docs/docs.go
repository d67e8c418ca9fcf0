// Package docs is generated by swag init from the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Reports service health including store connectivity",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpt.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}}
                }
            }
        },
        "/api/v1/runs": {
            "post": {
                "description": "Generates reminders, dispatches due ones and sweeps expired certifications",
                "produces": ["application/json"],
                "tags": ["Runs"],
                "summary": "Execute the daily run now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpt.RunResponse"}},
                    "409": {"description": "Another run is in progress", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}},
                    "503": {"description": "Store unavailable, run aborted", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}}
                }
            }
        },
        "/api/v1/certifications/{id}/reminders": {
            "post": {
                "description": "Dispatches a one-off reminder for a certification at the given tier, bypassing idempotency",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "Send a reminder now",
                "parameters": [
                    {"type": "string", "description": "Certification id", "name": "id", "in": "path", "required": true},
                    {"description": "Tier to send", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httpt.ManualReminderRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpt.ManualReminderResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}}
                }
            }
        },
        "/api/v1/reminders": {
            "get": {
                "description": "Failed reminders are not retried automatically; use this listing with the manual trigger to resend",
                "produces": ["application/json"],
                "tags": ["Reminders"],
                "summary": "List reminders by status",
                "parameters": [
                    {"type": "string", "default": "failed", "description": "pending, sending, sent or failed", "name": "status", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Maximum items", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httpt.ReminderListResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httpt.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httpt.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "not_found"},
                "details": {"type": "string"},
                "error": {"type": "string", "example": "certification not found"}
            }
        },
        "httpt.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "version": {"type": "string", "example": "1.0.0"}
            }
        },
        "httpt.ManualReminderRequest": {
            "type": "object",
            "required": ["tier"],
            "properties": {
                "tier": {"type": "string", "example": "7_day"}
            }
        },
        "httpt.ManualReminderResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "kind": {"type": "string", "example": "transport"},
                "success": {"type": "boolean"}
            }
        },
        "httpt.ReminderListResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "items": {"type": "array", "items": {"$ref": "#/definitions/httpt.ReminderResponse"}}
            }
        },
        "httpt.ReminderResponse": {
            "type": "object",
            "properties": {
                "attempts": {"type": "integer"},
                "certification_id": {"type": "string"},
                "company_id": {"type": "string"},
                "created_at": {"type": "string"},
                "error_message": {"type": "string"},
                "id": {"type": "string"},
                "scheduled_date": {"type": "string", "example": "2026-03-02"},
                "sent_at": {"type": "string"},
                "status": {"type": "string", "example": "failed"},
                "tier": {"type": "string", "example": "30_day"}
            }
        },
        "httpt.RunResponse": {
            "type": "object",
            "properties": {
                "emails_failed": {"type": "integer"},
                "emails_sent": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}},
                "finished_at": {"type": "string"},
                "reminders_created": {"type": "integer"},
                "skipped": {"type": "integer"},
                "started_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Certification Alert API",
	Description:      "Operator API for the certification expiry alert engine",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
