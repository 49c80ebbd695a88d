// Package docs registers the OpenAPI document served under /swagger/.
// Regenerate with: swag init -g cmd/server/main.go -o docs
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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {
                    "200": {"description": "data.status: ok", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "503": {"description": "error.code: service_unavailable", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "List the school's events",
                "parameters": [
                    {"type": "string", "description": "School filter (super admin only)", "name": "school_id", "in": "query"},
                    {"type": "string", "description": "Comma separated event statuses", "name": "status", "in": "query"},
                    {"type": "string", "description": "Search in title and description", "name": "q", "in": "query"},
                    {"type": "string", "description": "date, title or created_at", "name": "sort", "in": "query"},
                    {"type": "string", "description": "asc or desc", "name": "order", "in": "query"},
                    {"type": "integer", "description": "Page number (default 1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "Page size (default 20, max 100)", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "data contains items and pagination", "schema": {"$ref": "#/definitions/controllers.EventListSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "403": {"description": "error.code: forbidden", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Create an event",
                "parameters": [
                    {"description": "Event data", "name": "event", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "data contains the created event", "schema": {"$ref": "#/definitions/controllers.EventSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "401": {"description": "error.code: unauthorized", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "403": {"description": "error.code: forbidden", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events/{eventID}/participate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["participation"],
                "summary": "Request participation",
                "parameters": [
                    {"type": "string", "description": "Event ID (UUID)", "name": "eventID", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "data contains the PENDING request", "schema": {"$ref": "#/definitions/controllers.RequestSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "409": {"description": "error.code: conflict", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        },
        "/events/{eventID}/approve": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["participation"],
                "summary": "Approve or reject a batch of requests",
                "parameters": [
                    {"type": "string", "description": "Event ID (UUID)", "name": "eventID", "in": "path", "required": true},
                    {"description": "Batch decision", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/controllers.ReviewRequestsRequest"}}
                ],
                "responses": {
                    "200": {"description": "data contains per-item outcome", "schema": {"$ref": "#/definitions/controllers.BatchSuccessResponse"}},
                    "400": {"description": "error.code: bad_request", "schema": {"$ref": "#/definitions/helpers.APIResponse"}},
                    "403": {"description": "error.code: forbidden", "schema": {"$ref": "#/definitions/helpers.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "helpers.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "helpers.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.CreateEventRequest": {
            "type": "object",
            "required": ["date", "title"],
            "properties": {
                "school_id": {"type": "string"},
                "title": {"type": "string", "maxLength": 200},
                "description": {"type": "string", "maxLength": 5000},
                "date": {"type": "string"},
                "registration_deadline": {"type": "string"},
                "eligible_grades": {"type": "array", "items": {"type": "string"}},
                "max_participants": {"type": "integer", "minimum": 1},
                "max_participants_per_school": {"type": "integer", "minimum": 1},
                "submit": {"type": "boolean"}
            }
        },
        "controllers.ReviewRequestsRequest": {
            "type": "object",
            "required": ["action", "request_ids"],
            "properties": {
                "request_ids": {"type": "array", "minItems": 1, "maxItems": 200, "items": {"type": "string"}},
                "action": {"type": "string", "enum": ["approve", "reject"]},
                "rejection_reason": {"type": "string", "maxLength": 500}
            }
        },
        "controllers.EventSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.Event"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.EventListSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.RequestSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.ParticipationRequest"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "controllers.BatchSuccessResponse": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/domain.BatchResult"},
                "error": {"$ref": "#/definitions/helpers.APIError"}
            }
        },
        "domain.Event": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "school_id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "date": {"type": "string"},
                "registration_deadline": {"type": "string"},
                "eligible_grades": {"type": "array", "items": {"type": "string"}},
                "max_participants": {"type": "integer"},
                "max_participants_per_school": {"type": "integer"},
                "status": {"type": "string", "enum": ["DRAFT", "PENDING", "APPROVED", "REJECTED"]},
                "created_by": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/domain.ParticipantEntry"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.ParticipantEntry": {
            "type": "object",
            "properties": {
                "school_id": {"type": "string"},
                "students": {"type": "array", "items": {"type": "string"}},
                "joined_at": {"type": "string"}
            }
        },
        "domain.ParticipationRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "event_id": {"type": "string"},
                "school_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED", "ENROLLED", "WITHDRAWN"]},
                "requested_at": {"type": "string"},
                "approved_at": {"type": "string"},
                "approved_by": {"type": "string"},
                "rejected_at": {"type": "string"},
                "rejection_reason": {"type": "string"},
                "enrollment_confirmed_at": {"type": "string"},
                "student_notified_at": {"type": "string"},
                "withdrawn_at": {"type": "string"},
                "withdrawn_by": {"type": "string"},
                "force_enrolled": {"type": "boolean"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.BatchResult": {
            "type": "object",
            "properties": {
                "approved": {"type": "array", "items": {"type": "string"}},
                "rejected": {"type": "array", "items": {"type": "string"}},
                "failed": {"type": "array", "items": {"$ref": "#/definitions/domain.BatchFailure"}}
            }
        },
        "domain.BatchFailure": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "reason": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "School Events API",
	Description:      "Event participation requests, capacity and rosters for schools.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
