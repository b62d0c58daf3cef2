// Package docs registers the OpenAPI description served under /swagger.
// Regenerate with `swag init -g cmd/server/main.go` after changing the
// handler annotations.
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
    "paths": {
        "/api/v1/payments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Start a deposit",
                "parameters": [{
                    "name": "request",
                    "in": "body",
                    "required": true,
                    "schema": {"$ref": "#/definitions/payment.CreateRequest"}
                }],
                "responses": {
                    "201": {"description": "Checkout session opened", "schema": {"$ref": "#/definitions/common.Response"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "502": {"description": "Checkout unavailable", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/api/v1/payments/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Get a payment",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Payment fetched", "schema": {"$ref": "#/definitions/common.Response"}},
                    "404": {"description": "Payment not found", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        },
        "/api/v1/payments/bambora/callback": {
            "get": {
                "produces": ["application/json"],
                "tags": ["payments"],
                "summary": "Bambora completion callback",
                "responses": {
                    "200": {"description": "Payment captured", "schema": {"$ref": "#/definitions/common.Response"}},
                    "400": {"description": "Malformed or invalid callback", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "404": {"description": "Payment or pending attempt not found", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "409": {"description": "Amount or integrity check failed", "schema": {"$ref": "#/definitions/common.ProblemDetails"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/common.ProblemDetails"}}
                }
            }
        }
    },
    "definitions": {
        "common.Response": {
            "type": "object",
            "properties": {
                "status": {"type": "integer"},
                "message": {"type": "string"},
                "data": {}
            }
        },
        "common.ProblemDetails": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "status": {"type": "integer"},
                "detail": {"type": "string"},
                "instance": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "payment.CreateRequest": {
            "type": "object",
            "required": ["accounting_group", "currency"],
            "properties": {
                "amount": {"type": "string", "example": "100.00"},
                "currency": {"type": "string", "example": "DKK"},
                "accounting_group": {"type": "string", "example": "PENSION"},
                "policy_reference": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Deposit API",
	Description:      "Hosted checkout deposits and Bambora callback reconciliation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
