// Package docs holds the OpenAPI description served at /swagger/doc.json.
// Keep it in sync with the handler annotations (swag init -g cmd/pdfqa/main.go).
package docs

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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.HealthResponse"}}
                }
            }
        },
        "/upload": {
            "post": {
                "description": "Extract, chunk and embed a PDF into a new collection",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["pdfs"],
                "summary": "Upload a PDF",
                "parameters": [
                    {"type": "file", "description": "PDF file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/ask": {
            "post": {
                "description": "Stream an answer, optionally grounded in one PDF, as application/x-ndjson events (metadata, chunk, error)",
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "tags": ["ask"],
                "summary": "Ask a question",
                "parameters": [
                    {"description": "Question", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.AskRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Event"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/pdfs": {
            "get": {
                "description": "List every ingested PDF with its display name, chunk count and keywords",
                "produces": ["application/json"],
                "tags": ["pdfs"],
                "summary": "List PDFs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.PDFListResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/pdfs/{pdf_id}/chunks/{chunk_id}": {
            "get": {
                "description": "Get the text and metadata of one chunk of a PDF",
                "produces": ["application/json"],
                "tags": ["pdfs"],
                "summary": "Get chunk",
                "parameters": [
                    {"type": "string", "description": "PDF id", "name": "pdf_id", "in": "path", "required": true},
                    {"type": "integer", "description": "Chunk id", "name": "chunk_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ChunkResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "models.AskRequest": {
            "type": "object",
            "properties": {
                "question": {"type": "string"},
                "pdf_id": {"type": "string"},
                "chat_history": {"type": "array", "items": {"$ref": "#/definitions/models.ChatMessage"}}
            }
        },
        "models.ChatMessage": {
            "type": "object",
            "properties": {
                "role": {"type": "string", "enum": ["user", "assistant"]},
                "content": {"type": "string"}
            }
        },
        "models.Event": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["metadata", "chunk", "error"]},
                "pdf_id": {"type": "string"},
                "sources": {"type": "array", "items": {"$ref": "#/definitions/models.Source"}},
                "content": {"type": "string"}
            }
        },
        "models.Source": {
            "type": "object",
            "properties": {
                "chunk_id": {"type": "integer"}
            }
        },
        "models.UploadResponse": {
            "type": "object",
            "properties": {
                "pdf_id": {"type": "string"},
                "message": {"type": "string"},
                "stats": {"$ref": "#/definitions/models.UploadStats"}
            }
        },
        "models.UploadStats": {
            "type": "object",
            "properties": {
                "chunks": {"type": "integer"}
            }
        },
        "models.PDFListResponse": {
            "type": "object",
            "properties": {
                "pdfs": {"type": "array", "items": {"$ref": "#/definitions/models.PDFSummary"}}
            }
        },
        "models.PDFSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "chunks": {"type": "integer"},
                "keywords": {"type": "array", "items": {"type": "string"}}
            }
        },
        "models.ChunkResponse": {
            "type": "object",
            "properties": {
                "chunk_id": {"type": "integer"},
                "text": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true}
            }
        },
        "models.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:9000",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PDF QA API",
	Description:      "Upload PDFs and ask questions answered from their content, streamed as newline-delimited JSON",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
