// Package swagger provides API documentation
package swagger

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
        "/v1/chat/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Chat API"],
                "summary": "Chat health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.HealthResponse"}}
                }
            }
        },
        "/v1/chat/history/{sessionId}": {
            "get": {
                "description": "Returns every message of a conversation in timestamp order.",
                "produces": ["application/json"],
                "tags": ["Chat API"],
                "summary": "Get conversation history",
                "parameters": [
                    {"type": "string", "description": "Conversation ID (UUID)", "name": "sessionId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.HistoryResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/chat/message": {
            "post": {
                "description": "Stores the message, generates the assistant reply, and returns it. Omit sessionId to start a new conversation; an unknown sessionId also starts one.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Chat API"],
                "summary": "Send a chat message",
                "parameters": [
                    {"description": "Message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/responses.SendMessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/chat/stream": {
            "post": {
                "description": "Runs one turn and streams its events (messageReceived, typingStart, streamChunk, streamComplete or error, typingStop) as Server-Sent Events. Validation and rate-limit failures are returned as JSON before the stream opens.",
                "consumes": ["application/json"],
                "produces": ["text/event-stream"],
                "tags": ["Chat API"],
                "summary": "Stream a chat reply",
                "parameters": [
                    {"description": "Message", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/requests.SendMessageRequest"}}
                ],
                "responses": {
                    "200": {"description": "event stream", "schema": {"type": "string"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/v1/chat/ws": {
            "get": {
                "description": "Upgrades to a WebSocket carrying JSON frames {\"event\",\"data\"}. Send sendMessage {message, sessionId?}; receive messageReceived, typingStart, streamChunk, streamComplete, error, typingStop.",
                "tags": ["Chat API"],
                "summary": "Chat WebSocket",
                "responses": {
                    "101": {"description": "switching protocols", "schema": {"type": "string"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "requests.SendMessageRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string", "example": "What is your return policy?"},
                "sessionId": {"type": "string", "example": "0190b6f2-3c4d-7e8f-9a0b-1c2d3e4f5a6b"}
            }
        },
        "responses.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "requestId": {"type": "string"},
                "type": {"type": "string", "enum": ["validation_error", "not_found", "rate_limit", "llm_error", "unauthorized", "internal_error"]}
            }
        },
        "responses.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "timestamp": {"type": "string"}
            }
        },
        "responses.HistoryResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/responses.MessageResponse"}},
                "sessionId": {"type": "string"}
            }
        },
        "responses.MessageResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "sender": {"type": "string", "enum": ["user", "ai"]},
                "text": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "responses.SendMessageResponse": {
            "type": "object",
            "properties": {
                "reply": {"type": "string", "example": "You can return items within 30 days of delivery."},
                "sessionId": {"type": "string", "example": "0190b6f2-3c4d-7e8f-9a0b-1c2d3e4f5a6b"},
                "timestamp": {"type": "string", "example": "2026-01-02T15:04:05.000Z"}
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
	Title:            "Support Chat API",
	Description:      "Customer support chat with REST, SSE, and WebSocket transports",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
