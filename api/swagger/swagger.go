package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Ledger API",
        "description": "Marketplace ledger for tutor identities, escrowed sessions and ratings",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "API accounts bound to ledger addresses"},
        {"name": "Tutors", "description": "Tutor identity registry and active index"},
        {"name": "Sessions", "description": "Session booking, escrow and completion"},
        {"name": "Ledger", "description": "Notification feed, balances and escrow liability"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create an API account bound to a ledger address",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterAccountRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "409": {"description": "Email or address already registered"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/tutors": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List token ids minted to an address",
                "parameters": [
                    {"name": "owner", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Tutors"],
                "summary": "Mint a tutor identity owned by the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterTutorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/tutors/active": {
            "get": {
                "tags": ["Tutors"],
                "summary": "List active tutor token ids in registration order",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/tutors/{tokenId}": {
            "get": {
                "tags": ["Tutors"],
                "summary": "Get a tutor profile",
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Tutor not found"}
                }
            }
        },
        "/tutors/{tokenId}/deactivate": {
            "post": {
                "tags": ["Tutors"],
                "summary": "Remove a tutor from the active index",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Caller is not the owner"},
                    "404": {"description": "Tutor not found"},
                    "409": {"description": "Tutor already inactive"}
                }
            }
        },
        "/tutors/{tokenId}/reactivate": {
            "post": {
                "tags": ["Tutors"],
                "summary": "Return a tutor to the active index",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Caller is not the owner"},
                    "404": {"description": "Tutor not found"},
                    "409": {"description": "Tutor already active"}
                }
            }
        },
        "/tutors/{tokenId}/sessions": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List a tutor's sessions in index order",
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"},
                    {"name": "state", "in": "query", "type": "string", "enum": ["booked", "completed"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Tutor not found"}
                }
            },
            "post": {
                "tags": ["Sessions"],
                "summary": "Book a session against an active tutor, escrowing the payment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BookSessionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "402": {"description": "Payment does not match required escrow"},
                    "404": {"description": "Tutor not found"},
                    "409": {"description": "Tutor inactive"}
                }
            }
        },
        "/tutors/{tokenId}/sessions/{index}": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Get one session by tutor token id and index",
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found"}
                }
            }
        },
        "/tutors/{tokenId}/sessions/{index}/complete": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Complete a booked session, releasing escrow and recording the rating",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"},
                    {"name": "index", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Rating outside 1-5"},
                    "403": {"description": "Caller is not the booking student"},
                    "404": {"description": "Tutor or session not found"},
                    "409": {"description": "Session already completed"}
                }
            }
        },
        "/tutors/{tokenId}/earnings/export": {
            "get": {
                "tags": ["Tutors"],
                "summary": "Export a tutor's completed-session earnings statement",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "tokenId", "in": "path", "required": true, "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Statement file"},
                    "404": {"description": "Tutor not found"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Poll the append-only notification log",
                "parameters": [
                    {"name": "after_id", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/balances/{address}": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Get released funds for an address",
                "parameters": [
                    {"name": "address", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ledger/escrow": {
            "get": {
                "tags": ["Ledger"],
                "summary": "Report total escrow held for booked sessions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "RegisterAccountRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "address"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "address": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterTutorRequest": {
            "type": "object",
            "required": ["name", "subject", "bio", "hourly_rate"],
            "properties": {
                "name": {"type": "string"},
                "subject": {"type": "string"},
                "bio": {"type": "string"},
                "hourly_rate": {"type": "integer", "description": "Base currency units per hour"},
                "token_uri": {"type": "string"}
            }
        },
        "BookSessionRequest": {
            "type": "object",
            "required": ["duration_seconds", "payment"],
            "properties": {
                "duration_seconds": {"type": "integer"},
                "payment": {"type": "integer", "description": "Must equal hourly_rate * duration_seconds / 3600 exactly"}
            }
        },
        "CompleteSessionRequest": {
            "type": "object",
            "required": ["rating"],
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5}
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
