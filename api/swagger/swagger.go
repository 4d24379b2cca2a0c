package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Capstone Review API",
        "description": "Deliverable review workflow for capstone projects",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Deliverables", "description": "Deliverable catalog"},
        {"name": "Workflow", "description": "Review lifecycle transitions"},
        {"name": "Comments", "description": "Deliverable discussion"},
        {"name": "History", "description": "Append-only audit trail"},
        {"name": "Notifications", "description": "Per-user inbox"},
        {"name": "Dashboard", "description": "Aggregated state summaries"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Token expired or revoked"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke a refresh token",
                "responses": {
                    "204": {"description": "Revoked"}
                }
            }
        },
        "/deliverables": {
            "get": {
                "tags": ["Deliverables"],
                "summary": "List deliverables",
                "parameters": [
                    {"name": "project", "in": "query", "type": "string"},
                    {"name": "phase", "in": "query", "type": "string"},
                    {"name": "area", "in": "query", "type": "string"},
                    {"name": "assignee", "in": "query", "type": "string"},
                    {"name": "state", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Deliverable list"}
                }
            },
            "post": {
                "tags": ["Deliverables"],
                "summary": "Create a deliverable",
                "responses": {
                    "201": {"description": "Created in PENDING"}
                }
            }
        },
        "/deliverables/{id}": {
            "get": {
                "tags": ["Deliverables"],
                "summary": "Get deliverable detail",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Deliverable"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/deliverables/{id}/submit": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit a deliverable for review",
                "responses": {
                    "200": {"description": "Now SUBMITTED"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/deliverables/{id}/review": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Start reviewing a submitted deliverable",
                "responses": {
                    "200": {"description": "Now IN_REVIEW"},
                    "409": {"description": "Transition not allowed"}
                }
            }
        },
        "/deliverables/{id}/decision": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record a review decision",
                "responses": {
                    "200": {"description": "Decision applied"},
                    "409": {"description": "Not in review or concurrent change"}
                }
            }
        },
        "/deliverables/{id}/assignee": {
            "put": {
                "tags": ["Workflow"],
                "summary": "Assign a deliverable",
                "responses": {
                    "200": {"description": "Assignee updated"}
                }
            }
        },
        "/deliverables/{id}/comments": {
            "get": {
                "tags": ["Comments"],
                "summary": "List deliverable comments",
                "responses": {
                    "200": {"description": "Comment list"}
                }
            },
            "post": {
                "tags": ["Comments"],
                "summary": "Add a comment",
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/deliverables/{id}/history": {
            "get": {
                "tags": ["History"],
                "summary": "Query a deliverable's audit trail",
                "responses": {
                    "200": {"description": "History entries, newest first"}
                }
            }
        },
        "/deliverables/{id}/history/export": {
            "get": {
                "tags": ["History"],
                "summary": "Download the audit trail as CSV or PDF",
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List own notifications",
                "responses": {
                    "200": {"description": "Notification list"}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Unknown or already read"}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Deliverable state summary",
                "responses": {
                    "200": {"description": "Counts per state with overdue total"}
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
