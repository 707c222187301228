package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Courtside Scheduler API",
        "description": "Court scheduling and conflict validation for multi-division tournaments",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Scheduling", "description": "Generation, validation and organizer overrides"},
        {"name": "Blocks", "description": "Court group block assignments"},
        {"name": "Availability", "description": "Court open hours"},
        {"name": "Grid", "description": "Read-only schedule grid and exports"},
        {"name": "Observability", "description": "Counters and health"}
    ],
    "paths": {
        "/events/{eventId}/schedule/generate": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Place every unscheduled encounter of an event",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/GenerateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Event not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/conflicts": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Validate the persisted schedule",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "divisionId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/grid": {
            "get": {
                "tags": ["Grid"],
                "summary": "Schedule grid for an event or one day",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/grid/export": {
            "get": {
                "tags": ["Grid"],
                "summary": "Download the schedule grid",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]},
                    {"name": "day", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "404": {"description": "Exports disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/blocks": {
            "get": {
                "tags": ["Blocks"],
                "summary": "List block assignments",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Blocks"],
                "summary": "Replace block assignments",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceBlocksRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid blocks", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/blocks/auto-allocate": {
            "post": {
                "tags": ["Blocks"],
                "summary": "Partition unassigned courts into groups and bind blocks",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AutoAllocateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "List availability windows",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Availability"],
                "summary": "Replace availability windows",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{eventId}/courts/{courtId}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Effective window of a court on one day",
                "parameters": [
                    {"name": "eventId", "in": "path", "required": true, "type": "string"},
                    {"name": "courtId", "in": "path", "required": true, "type": "string"},
                    {"name": "day", "in": "query", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/encounters/{id}/assign": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Place one encounter against the current schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/AssignSingleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Encounter frozen", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/encounters/{id}/move": {
            "put": {
                "tags": ["Scheduling"],
                "summary": "Move an encounter to a court and start time",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveEncounterRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Encounter frozen", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/encounters/{id}/schedule": {
            "delete": {
                "tags": ["Scheduling"],
                "summary": "Clear court and time of one encounter",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/divisions/{divisionId}/schedule/clear": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Clear the schedule of a division",
                "parameters": [
                    {"name": "divisionId", "in": "path", "required": true, "type": "string"},
                    {"name": "phaseId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Scheduler and cache counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateScheduleRequest": {
            "type": "object",
            "properties": {
                "divisionId": {"type": "string"},
                "phaseId": {"type": "string"}
            }
        },
        "AssignSingleRequest": {
            "type": "object",
            "properties": {
                "notBefore": {"type": "string", "format": "date-time"}
            }
        },
        "MoveEncounterRequest": {
            "type": "object",
            "required": ["courtId", "startTime"],
            "properties": {
                "courtId": {"type": "string"},
                "startTime": {"type": "string", "format": "date-time"}
            }
        },
        "BlockAssignmentInput": {
            "type": "object",
            "required": ["divisionId", "courtGroupId"],
            "properties": {
                "id": {"type": "string"},
                "key": {"type": "string"},
                "divisionId": {"type": "string"},
                "phaseId": {"type": "string"},
                "courtGroupId": {"type": "string"},
                "dayNumber": {"type": "integer"},
                "validFrom": {"type": "string", "example": "09:00"},
                "validTo": {"type": "string", "example": "12:00"},
                "priority": {"type": "integer"},
                "dependsOnKey": {"type": "string"},
                "dependsOnBlockId": {"type": "string"}
            }
        },
        "ReplaceBlocksRequest": {
            "type": "object",
            "properties": {
                "blocks": {"type": "array", "items": {"$ref": "#/definitions/BlockAssignmentInput"}}
            }
        },
        "AutoAllocateBlock": {
            "type": "object",
            "required": ["divisionId"],
            "properties": {
                "divisionId": {"type": "string"},
                "phaseId": {"type": "string"},
                "dayNumber": {"type": "integer"},
                "validFrom": {"type": "string"},
                "validTo": {"type": "string"},
                "priority": {"type": "integer"},
                "dependsOnIndex": {"type": "integer"}
            }
        },
        "AutoAllocateRequest": {
            "type": "object",
            "properties": {
                "blocks": {"type": "array", "items": {"$ref": "#/definitions/AutoAllocateBlock"}}
            }
        },
        "AvailabilityWindowInput": {
            "type": "object",
            "required": ["dayNumber", "openFrom", "openTo"],
            "properties": {
                "courtId": {"type": "string"},
                "dayNumber": {"type": "integer"},
                "openFrom": {"type": "string", "example": "09:00"},
                "openTo": {"type": "string", "example": "18:00"}
            }
        },
        "ReplaceAvailabilityRequest": {
            "type": "object",
            "properties": {
                "windows": {"type": "array", "items": {"$ref": "#/definitions/AvailabilityWindowInput"}}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
