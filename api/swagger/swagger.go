package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Recommendation Request Portal",
        "description": "Server-rendered portal for recommendation letter requests.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Pages", "description": "HTML pages and their form posts"},
        {"name": "Exports", "description": "Statistics downloads"},
        {"name": "Operations", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Operations"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Operations"],
                "summary": "Readiness check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unavailable"}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["Operations"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Metrics in the Prometheus exposition format"}
                }
            }
        },
        "/student/profile": {
            "get": {
                "tags": ["Pages"],
                "summary": "Viewer's own requests",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"},
                    "401": {"description": "No session"}
                }
            }
        },
        "/student/recommendations/create": {
            "get": {
                "tags": ["Pages"],
                "summary": "Request creation form",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"}
                }
            },
            "post": {
                "tags": ["Pages"],
                "summary": "Submit a new request",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "parameters": [
                    {"name": "professor_id", "in": "formData", "type": "string", "required": true},
                    {"name": "recommendationType", "in": "formData", "type": "string", "required": true},
                    {"name": "details", "in": "formData", "type": "string"},
                    {"name": "dueDate", "in": "formData", "type": "string", "required": true, "description": "datetime-local value"}
                ],
                "responses": {
                    "303": {"description": "Redirect to the profile page"},
                    "422": {"description": "Form with field errors"}
                }
            }
        },
        "/student/recommendations/edit/{id}": {
            "get": {
                "tags": ["Pages"],
                "summary": "Request edit form",
                "produces": ["text/html"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "HTML page"}
                }
            },
            "post": {
                "tags": ["Pages"],
                "summary": "Save request details",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["text/html"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "details", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "303": {"description": "Redirect to the profile page"}
                }
            }
        },
        "/requests/pending": {
            "get": {
                "tags": ["Pages"],
                "summary": "Open requests",
                "description": "Professors get a status selector on every row.",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"}
                }
            }
        },
        "/requests/completed": {
            "get": {
                "tags": ["Pages"],
                "summary": "Closed requests",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"}
                }
            }
        },
        "/requests/statistics": {
            "get": {
                "tags": ["Pages"],
                "summary": "Request counts per status",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"}
                }
            }
        },
        "/requests/statistics/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download request statistics",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Backend failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/status": {
            "post": {
                "tags": ["Pages"],
                "summary": "Propose a new status",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "status", "in": "formData", "type": "string", "required": true, "enum": ["PENDING", "COMPLETED", "DENIED"]},
                    {"name": "return_to", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "303": {"description": "Redirect back to the list"}
                }
            }
        },
        "/requests/{id}/delete": {
            "post": {
                "tags": ["Pages"],
                "summary": "Delete a request",
                "consumes": ["application/x-www-form-urlencoded"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true},
                    {"name": "return_to", "in": "formData", "type": "string"}
                ],
                "responses": {
                    "303": {"description": "Redirect back to the list"}
                }
            }
        },
        "/admin/requests": {
            "get": {
                "tags": ["Pages"],
                "summary": "Every request",
                "produces": ["text/html"],
                "responses": {
                    "200": {"description": "HTML page"},
                    "403": {"description": "Not an admin"}
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
