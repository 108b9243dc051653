// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag/v2"

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
    "security": [{"BearerAuth": []}],
    "paths": {
        "/ledger/parents": {
            "get": {
                "tags": ["ledger"],
                "summary": "List eligible parents for a child kind",
                "parameters": [
                    {"type": "string", "enum": ["release_order", "delivery_order", "outward_movement"], "name": "kind", "in": "query", "required": true},
                    {"type": "string", "name": "search", "in": "query"},
                    {"type": "boolean", "name": "include_exhausted", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/reservations": {
            "post": {
                "tags": ["ledger"],
                "summary": "Create a reservation against a parent",
                "consumes": ["application/json", "multipart/form-data"],
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationBody"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Parent not found", "schema": {"$ref": "#/definitions/Response"}},
                    "409": {"description": "Quantity exceeds balance", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/reservations/{id}": {
            "get": {
                "tags": ["ledger"],
                "summary": "Get a reservation with its audit trail",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}}
                }
            },
            "patch": {
                "tags": ["ledger"],
                "summary": "Revise a resubmitted reservation",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReviseReservationBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "422": {"description": "Not revisable", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/reservations/{id}/transition": {
            "post": {
                "tags": ["ledger"],
                "summary": "Approve, reject or resubmit a pending reservation",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "409": {"description": "Invalid transition", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/reservations/{id}/attachments/{index}": {
            "get": {
                "tags": ["ledger"],
                "summary": "Redirect to a reservation attachment",
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "index", "in": "path", "required": true}
                ],
                "responses": {
                    "307": {"description": "Temporary Redirect"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/ledger/{parent_kind}/{parent_id}": {
            "get": {
                "tags": ["ledger"],
                "summary": "Get a parent's balance and its reservations",
                "parameters": [
                    {"type": "string", "name": "parent_kind", "in": "path", "required": true},
                    {"type": "string", "format": "uuid", "name": "parent_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/inward-lots": {
            "post": {
                "tags": ["inward-lots"],
                "summary": "Register an inward lot",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterInwardLotBody"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Response"}},
                    "409": {"description": "Natural key already registered", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        },
        "/ledger/inward-lots/{id}": {
            "get": {
                "tags": ["inward-lots"],
                "summary": "Get an inward lot with its balance",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/Response"}}
                }
            }
        }
    },
    "definitions": {
        "Response": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string"},
                        "message": {"type": "string"},
                        "request_id": {"type": "string"}
                    }
                }
            }
        },
        "Stack": {
            "type": "object",
            "properties": {
                "label": {"type": "string"},
                "quantity": {"type": "string", "example": "5"}
            }
        },
        "CreateReservationBody": {
            "type": "object",
            "required": ["kind", "parent_kind", "parent_id", "reserved_primary"],
            "properties": {
                "kind": {"type": "string", "enum": ["release_order", "delivery_order", "outward_movement"]},
                "parent_kind": {"type": "string", "enum": ["inward_lot", "release_order", "delivery_order"]},
                "parent_id": {"type": "string", "format": "uuid"},
                "reserved_primary": {"type": "string", "example": "40"},
                "reserved_secondary": {"type": "string", "example": "10.5"},
                "attachment_refs": {"type": "array", "items": {"type": "string"}},
                "stacks": {"type": "array", "items": {"$ref": "#/definitions/Stack"}}
            }
        },
        "ReviseReservationBody": {
            "type": "object",
            "required": ["reserved_primary"],
            "properties": {
                "reserved_primary": {"type": "string", "example": "35"},
                "reserved_secondary": {"type": "string"},
                "attachment_refs": {"type": "array", "items": {"type": "string"}},
                "stacks": {"type": "array", "items": {"$ref": "#/definitions/Stack"}}
            }
        },
        "TransitionBody": {
            "type": "object",
            "required": ["status", "remark"],
            "properties": {
                "status": {"type": "string", "enum": ["approved", "rejected", "resubmitted"]},
                "remark": {"type": "string", "maxLength": 500}
            }
        },
        "RegisterInwardLotBody": {
            "type": "object",
            "required": ["natural_key", "offered_primary"],
            "properties": {
                "natural_key": {"type": "string"},
                "commodity": {"type": "string"},
                "offered_primary": {"type": "string"},
                "offered_secondary": {"type": "string"},
                "bank": {
                    "type": "object",
                    "properties": {
                        "bank_name": {"type": "string"},
                        "branch_name": {"type": "string"},
                        "account_ref": {"type": "string"},
                        "loan_account": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Inventory Allocation Ledger API",
	Description:      "Cascading reservations from inward lots through release orders and delivery orders to outward movements.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
