// Package docs registers the foodhub API description with swag so that
// gin-swagger can serve it under /swagger.
//
//	@title						foodhub API
//	@version					1.0.0
//	@description				Order intake, kitchen workflow and live order updates for a single food outlet.
//	@basePath					/api/v1
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
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
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "paths": {
        "/orders": {
            "get": {
                "summary": "List orders, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "phone", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["NEW", "CONFIRMED", "COOKING", "READY", "DELIVERY", "COMPLETED", "CANCELLED"]},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "orders"}, "401": {"$ref": "#/responses/Problem"}}
            },
            "post": {
                "summary": "Create an order",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateOrderRequest"}}],
                "responses": {
                    "201": {"description": "created", "schema": {"$ref": "#/definitions/Order"}},
                    "400": {"$ref": "#/responses/Problem"},
                    "409": {"description": "store closed", "schema": {"$ref": "#/definitions/Problem"}},
                    "503": {"$ref": "#/responses/Problem"}
                }
            }
        },
        "/orders/{id}": {
            "get": {
                "summary": "Get an order",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "order", "schema": {"$ref": "#/definitions/Order"}}, "404": {"$ref": "#/responses/Problem"}}
            }
        },
        "/orders/{id}/status": {
            "patch": {
                "summary": "Move an order to its next status (operator)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ChangeStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "order", "schema": {"$ref": "#/definitions/Order"}},
                    "409": {"description": "invalid or stale transition", "schema": {"$ref": "#/definitions/Problem"}}
                }
            }
        },
        "/orders/{id}/history": {
            "get": {
                "summary": "Applied status transitions (operator)",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "transitions"}}
            }
        },
        "/store/status": {
            "get": {"summary": "Whether orders are accepted now", "responses": {"200": {"description": "verdict"}}}
        },
        "/ws": {
            "get": {
                "summary": "Websocket stream of order events",
                "parameters": [{"name": "token", "in": "query", "type": "string"}],
                "responses": {"101": {"description": "switching protocols"}, "401": {"$ref": "#/responses/Problem"}}
            }
        },
        "/auth/otp": {
            "post": {
                "summary": "Send a one-time code to a phone",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "required": ["phone"], "properties": {"phone": {"type": "string"}}}}],
                "responses": {"202": {"description": "sent"}, "429": {"description": "rate limited"}}
            }
        },
        "/auth/otp/verify": {
            "post": {
                "summary": "Exchange a code for a customer token",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "required": ["phone", "code"], "properties": {"phone": {"type": "string"}, "code": {"type": "string"}}}}],
                "responses": {"200": {"description": "token", "schema": {"$ref": "#/definitions/Token"}}, "401": {"$ref": "#/responses/Problem"}}
            }
        },
        "/auth/login": {
            "post": {
                "summary": "Operator login",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object", "required": ["username", "password"], "properties": {"username": {"type": "string"}, "password": {"type": "string"}}}}],
                "responses": {"200": {"description": "token", "schema": {"$ref": "#/definitions/Token"}}, "401": {"$ref": "#/responses/Problem"}}
            }
        },
        "/settings": {
            "get": {"summary": "List settings (operator)", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "settings"}}}
        },
        "/settings/{key}": {
            "patch": {
                "summary": "Update a setting (operator)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object", "required": ["value"], "properties": {"value": {"type": "string"}}}}
                ],
                "responses": {"200": {"description": "setting"}, "400": {"$ref": "#/responses/Problem"}, "404": {"$ref": "#/responses/Problem"}}
            }
        },
        "/health": {"get": {"summary": "Liveness and backing store check", "responses": {"200": {"description": "ok"}, "503": {"description": "degraded"}}}}
    },
    "responses": {
        "Problem": {"description": "RFC 7807 problem details", "schema": {"$ref": "#/definitions/Problem"}}
    },
    "definitions": {
        "Problem": {
            "type": "object",
            "properties": {
                "type": {"type": "string"}, "title": {"type": "string"}, "status": {"type": "integer"},
                "detail": {"type": "string"}, "instance": {"type": "string"}, "code": {"type": "string"}
            }
        },
        "Token": {
            "type": "object",
            "properties": {"token": {"type": "string"}, "expires_at": {"type": "string", "format": "date-time"}, "role": {"type": "string"}}
        },
        "ChangeStatusRequest": {
            "type": "object",
            "required": ["from", "status"],
            "properties": {"from": {"type": "string"}, "status": {"type": "string"}}
        },
        "CreateOrderRequest": {
            "type": "object",
            "required": ["customer_name", "customer_phone", "type", "payment_type", "items"],
            "properties": {
                "customer_name": {"type": "string"},
                "customer_phone": {"type": "string"},
                "type": {"type": "string", "enum": ["DELIVERY", "PICKUP"]},
                "address": {"type": "string"},
                "location_lat": {"type": "number"},
                "location_lon": {"type": "number"},
                "comment": {"type": "string"},
                "payment_type": {"type": "string", "enum": ["cash", "card", "click", "payme"]},
                "items": {"type": "array", "items": {"type": "object", "properties": {"product_id": {"type": "string"}, "quantity": {"type": "integer"}}}}
            }
        },
        "Order": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "status": {"type": "string"},
                "type": {"type": "string"},
                "total_amount": {"type": "string"},
                "delivery_price": {"type": "string"},
                "customer_name": {"type": "string"},
                "customer_phone": {"type": "string"},
                "payment_type": {"type": "string"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "foodhub API",
	Description:      "Order intake, kitchen workflow and live order updates for a single food outlet.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
