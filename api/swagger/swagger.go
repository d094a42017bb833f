package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Evalio API",
        "description": "Anonymous teacher evaluation platform for schools",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Public", "description": "Anonymous student flow: verify a code and submit a response"},
        {"name": "Auth", "description": "Login and account management"},
        {"name": "Schools", "description": "Tenant management (admin)"},
        {"name": "Classes", "description": "Classes and teaching assignments"},
        {"name": "Teachers", "description": "Instructor roster"},
        {"name": "Subjects", "description": "Course roster"},
        {"name": "Evaluations", "description": "Evaluation campaigns, results and exports"},
        {"name": "AccessCodes", "description": "One-time student access codes"}
    ],
    "paths": {
        "/public/verify": {
            "post": {
                "tags": ["Public"],
                "summary": "Verify an access code",
                "responses": {
                    "200": {"description": "Code is valid and the evaluation is open"},
                    "400": {"description": "Unknown code, already used, or window closed"}
                }
            }
        },
        "/public/responses": {
            "post": {
                "tags": ["Public"],
                "summary": "Submit an anonymous evaluation response",
                "responses": {
                    "201": {"description": "Response stored, code consumed"},
                    "400": {"description": "Invalid payload, code or window"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/evaluations/{id}/codes": {
            "post": {
                "tags": ["AccessCodes"],
                "summary": "Issue access codes for classes",
                "responses": {
                    "201": {"description": "Codes issued"}
                }
            },
            "get": {
                "tags": ["AccessCodes"],
                "summary": "List issued codes",
                "responses": {
                    "200": {"description": "Codes"}
                }
            }
        },
        "/evaluations/{id}/stats": {
            "get": {
                "tags": ["Evaluations"],
                "summary": "Aggregate statistics",
                "responses": {
                    "200": {"description": "Totals, averages and completion rate"}
                }
            }
        }
    },
    "definitions": {
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
                "pagination": {"type": "object"}
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
