// Package auth holds the OpenAPI document for the auth service, in the
// layout produced by swag init from the handler annotations.
package auth

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/rollcall"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth/login": {
            "post": {
                "description": "Authenticates by username or email and returns an access token and a single-use refresh token.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log in",
                "parameters": [
                    {
                        "description": "Credentials",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.TokenResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "401": {"description": "Invalid username or password", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/authsdk.APIError"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "description": "Creates a new account with the EMPLOYEE role. Does not log in.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Register",
                "parameters": [
                    {
                        "description": "New account",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.RegisterRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/authsdk.RegisterResponse"}},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "409": {"description": "Username or email already in use", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/authsdk.APIError"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "description": "Redeems a refresh token for a new pair. Each refresh token can be redeemed once.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Refresh tokens",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.RefreshRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.TokenResponse"}},
                    "400": {"description": "Invalid or expired refresh token", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/authsdk.APIError"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Revokes the given refresh token if it belongs to the caller. Idempotent.",
                "consumes": ["application/json"],
                "tags": ["Auth"],
                "summary": "Log out",
                "parameters": [
                    {
                        "description": "Refresh token",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/authsdk.RefreshRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/authsdk.APIError"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/authsdk.APIError"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the username and roles carried by the access token.",
                "produces": ["application/json"],
                "tags": ["Auth"],
                "summary": "Current principal",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/authsdk.MeResponse"}},
                    "401": {"description": "Authentication required", "schema": {"$ref": "#/definitions/authsdk.APIError"}}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Reports uptime, version and database reachability.",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}},
                    "503": {"description": "status, uptime, version, checks - service not ready", "schema": {"$ref": "#/definitions/authsdk.HealthResponse"}}
                }
            }
        }
    },
    "definitions": {
        "authsdk.APIError": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "status": {"type": "integer"},
                "error": {"type": "string"},
                "message": {"type": "string"},
                "path": {"type": "string"},
                "fieldErrors": {"type": "array", "items": {"$ref": "#/definitions/authsdk.FieldError"}}
            }
        },
        "authsdk.FieldError": {
            "type": "object",
            "properties": {
                "field": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "authsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "authsdk.LoginRequest": {
            "type": "object",
            "properties": {
                "usernameOrEmail": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "authsdk.MeResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        },
        "authsdk.RefreshRequest": {
            "type": "object",
            "properties": {
                "refreshToken": {"type": "string"}
            }
        },
        "authsdk.RegisterRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "authsdk.RegisterResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "authsdk.TokenResponse": {
            "type": "object",
            "properties": {
                "accessToken": {"type": "string"},
                "refreshToken": {"type": "string"},
                "tokenType": {"type": "string"},
                "expiresIn": {"type": "integer"},
                "username": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "JWT access token. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Rollcall Authentication API",
	Description:      "Username/password login issuing HS256 access tokens and single-use rotating refresh tokens.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
