package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Ops API",
        "description": "Timetable and substitution scheduling engines for schools",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Login and session introspection"},
        {"name": "Configuration", "description": "Per-school scheduling constraints"},
        {"name": "Timetable", "description": "Weekly timetable generation, validation and freezing"},
        {"name": "Substitutions", "description": "Daily substitute assignment"},
        {"name": "Leaves", "description": "Teacher leave workflow"},
        {"name": "Reports", "description": "Asynchronous CSV/PDF exports"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unreachable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Access token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user claims",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Claims"}
                }
            }
        },
        "/schools/{schoolId}/config": {
            "get": {
                "tags": ["Configuration"],
                "summary": "Get scheduling configuration",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Configuration"},
                    "412": {"description": "No configuration stored"}
                }
            },
            "put": {
                "tags": ["Configuration"],
                "summary": "Update scheduling configuration",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Configuration saved"},
                    "400": {"description": "Validation failure"}
                }
            }
        },
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate weekly timetable",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Proposal with slots, conflicts and score"},
                    "412": {"description": "No configuration stored"}
                }
            }
        },
        "/timetable/validate": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Validate persisted timetable",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Conflict list"}
                }
            }
        },
        "/timetable/freeze": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Freeze timetable",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Snapshot created"},
                    "409": {"description": "Already frozen or has conflicts"}
                }
            }
        },
        "/timetable/unfreeze": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Unfreeze timetable",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Snapshot deactivated"},
                    "404": {"description": "No active snapshot for scope"}
                }
            }
        },
        "/timetable/freeze-status": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Freeze status for a scope",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Frozen flag and snapshot"}
                }
            }
        },
        "/substitutions/generate": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Assign and persist substitutes for a date",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Assignments, skipped periods, advisory errors"}
                }
            }
        },
        "/substitutions/preview": {
            "post": {
                "tags": ["Substitutions"],
                "summary": "Dry-run substitute assignment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Assignments without persistence"}
                }
            }
        },
        "/leaves": {
            "get": {
                "tags": ["Leaves"],
                "summary": "List leave requests",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Leave requests"}
                }
            },
            "post": {
                "tags": ["Leaves"],
                "summary": "File leave request",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Leave request created"}
                }
            }
        },
        "/leaves/{id}/review": {
            "post": {
                "tags": ["Leaves"],
                "summary": "Approve or reject leave request",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Leave request updated"},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List my report jobs",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Jobs"}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Enqueue export job",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Job queued"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Job status and download URL when finished"}
                }
            }
        },
        "/reports/download": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download finished export",
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
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
