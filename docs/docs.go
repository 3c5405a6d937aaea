// Package docs registers the Swagger document served under /swagger. It is
// kept by hand and covers the reporting and provisioning endpoints only.
// TODO: annotate the remaining handlers and switch to `swag init` output.
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
        "/provisioning": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Provisioning"],
                "summary": "Provisioning request history",
                "parameters": [
                    {"type": "integer", "description": "page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Provisioning"],
                "summary": "Request network provisioning",
                "parameters": [
                    {"description": "request", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/provisioning.CreateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/provisioning.Response"}}
                }
            }
        },
        "/reports/equipment": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Accepts the same filters as the equipment list.",
                "produces": ["text/csv", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "application/pdf"],
                "tags": ["Reports"],
                "summary": "Export equipment",
                "parameters": [
                    {"type": "string", "description": "csv, excel or pdf", "name": "format", "in": "query"},
                    {"type": "string", "description": "Available, Issued, Retired or Scrapped", "name": "status", "in": "query"},
                    {"type": "string", "description": "category", "name": "category", "in": "query"},
                    {"type": "string", "description": "location", "name": "location", "in": "query"},
                    {"type": "string", "description": "free text", "name": "q", "in": "query"},
                    {"type": "string", "description": "student, staff or faculty", "name": "owner_kind", "in": "query"},
                    {"type": "string", "description": "roll or id", "name": "owner_key", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/labels": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "A4 sheet of 3 x 8 stickers with department code, model, serial and location.",
                "consumes": ["application/json"],
                "produces": ["application/pdf"],
                "tags": ["Reports"],
                "summary": "Print asset labels",
                "parameters": [
                    {"description": "assets", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/reporting.LabelRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/owners/{kind}/{key}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["Reports"],
                "summary": "Resource sheet of one owner",
                "parameters": [
                    {"type": "string", "description": "student, staff or faculty", "name": "kind", "in": "path", "required": true},
                    {"type": "string", "description": "roll or id", "name": "key", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/utilization": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Reports"],
                "summary": "Lab seat utilization",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/reporting.Utilization"}}
                }
            }
        },
        "/reports/workstations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "tags": ["Reports"],
                "summary": "Export workstations",
                "parameters": [
                    {"type": "string", "description": "csv or pdf", "name": "format", "in": "query"},
                    {"type": "string", "description": "status", "name": "status", "in": "query"},
                    {"type": "string", "description": "location", "name": "location", "in": "query"},
                    {"type": "string", "description": "free text", "name": "q", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "provisioning.CreateRequest": {
            "type": "object",
            "properties": {
                "ip_address": {"type": "string"},
                "mac_address": {"type": "string"},
                "os_image": {"type": "string"}
            }
        },
        "provisioning.Response": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "integer"},
                "ip_address": {"type": "string"},
                "mac_address": {"type": "string"},
                "os_image": {"type": "string"},
                "requested_by": {"type": "string"}
            }
        },
        "reporting.LabelRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "ids": {"type": "array", "items": {"type": "integer"}},
                "kind": {"type": "string"},
                "skip": {"type": "integer"}
            }
        },
        "reporting.RoomUtilization": {
            "type": "object",
            "properties": {
                "available": {"type": "integer"},
                "faculty_in_charge": {"type": "array", "items": {"type": "string"}},
                "meeting_rooms": {"type": "array", "items": {"type": "string"}},
                "name": {"type": "string"},
                "occupancy_percent": {"type": "number"},
                "staff_in_charge": {"type": "string"},
                "total": {"type": "integer"},
                "used": {"type": "integer"},
                "used_seats": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "reporting.Utilization": {
            "type": "object",
            "properties": {
                "available": {"type": "integer"},
                "occupancy_percent": {"type": "number"},
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/reporting.RoomUtilization"}},
                "total": {"type": "integer"},
                "used": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the JWT.",
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "LIMS Lab Inventory API",
	Description:      "Lab seats, offices, workstations and equipment of the department.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
