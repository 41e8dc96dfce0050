package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Bulletin API",
        "description": "Multi-tenant school records and report card generation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Accounts, sessions and password resets"},
        {"name": "Bulletins", "description": "Report card generation and archive downloads"},
        {"name": "Dashboard", "description": "Account totals and recent activity"},
        {"name": "Imports", "description": "Bulk spreadsheet imports"}
    ],
    "paths": {
        "/accounts": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create an account and its administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/password/forgot": {
            "post": {
                "tags": ["Auth"],
                "summary": "Issue a six digit reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForgotPasswordRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/auth/password/reset": {
            "post": {
                "tags": ["Auth"],
                "summary": "Reset a password with a reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}
                ],
                "responses": {
                    "204": {"description": "Password changed"},
                    "400": {"description": "Invalid or expired code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/generate": {
            "post": {
                "tags": ["Bulletins"],
                "summary": "Generate class bulletins",
                "security": [{"BearerAuth": []}],
                "produces": ["application/zip", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateBulletinsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generated document", "schema": {"type": "file"}},
                    "404": {"description": "Class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Class has no active students", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "500": {"description": "Rendering failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "List stored bulletins of a class",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "class_id", "in": "query", "type": "string", "required": true},
                    {"name": "semester", "in": "query", "type": "string", "required": true},
                    {"name": "academic_year", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/{id}/appreciation": {
            "patch": {
                "tags": ["Bulletins"],
                "summary": "Set the appreciation of a bulletin",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetAppreciationRequest"}}
                ],
                "responses": {
                    "204": {"description": "Updated"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulletins/archive/{token}": {
            "get": {
                "tags": ["Bulletins"],
                "summary": "Download an archived document",
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Archived document", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired link", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Totals of active students, classes, active subjects and grades with the latest students and grades",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "refresh", "in": "query", "type": "boolean", "required": false}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/imports/{kind}": {
            "post": {
                "tags": ["Imports"],
                "summary": "Import students, subjects or classes",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "kind", "in": "path", "type": "string", "required": true, "enum": ["students", "subjects", "classes"]},
                    {"name": "file", "in": "formData", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "Per-row results", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Unreadable file or missing columns", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["account_name", "email", "password", "full_name"],
            "properties": {
                "account_name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"}
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
        "ForgotPasswordRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {
                "email": {"type": "string"}
            }
        },
        "ResetPasswordRequest": {
            "type": "object",
            "required": ["email", "code", "new_password"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "GenerateBulletinsRequest": {
            "type": "object",
            "required": ["class_id", "semester", "academic_year", "format"],
            "properties": {
                "class_id": {"type": "string"},
                "semester": {"type": "string"},
                "academic_year": {"type": "string"},
                "format": {"type": "string", "enum": ["pdf", "pdf_grouped", "excel"]}
            }
        },
        "SetAppreciationRequest": {
            "type": "object",
            "properties": {
                "appreciation": {"type": "string"}
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
