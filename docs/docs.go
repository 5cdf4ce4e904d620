// Package docs registers the Swagger 2.0 description of the checklist API
// with swag so gin-swagger can serve it under /swagger.
//
// The template mirrors the handler annotations; refresh it with
// `swag init -g internal/http/router.go -o docs` after changing them.
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/me": {
            "get": {"operationId": "getMe", "tags": ["Identity"], "summary": "Current principal",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.MeResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "403": {"description": "No profile", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/auth/signout": {
            "post": {"operationId": "signOut", "tags": ["Identity"], "summary": "Sign out",
                "responses": {"204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants": {
            "get": {"operationId": "listRestaurants", "tags": ["Restaurants"], "summary": "List restaurants",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListRestaurantsResponse"}}}}
        },
        "/restaurants/{restId}": {
            "get": {"operationId": "getRestaurant", "tags": ["Restaurants"], "summary": "Get restaurant",
                "parameters": [{"$ref": "#/parameters/restId"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.RestaurantView"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "404": {"description": "Restaurant not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants/{restId}/checklists": {
            "get": {"operationId": "listChecklistDays", "tags": ["Checklists"], "summary": "List checklist days (paginated)",
                "parameters": [{"$ref": "#/parameters/restId"},
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"type": "integer", "default": 1, "minimum": 1, "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "minimum": 1, "maximum": 100, "name": "page_size", "in": "query"}],
                "responses": {"200": {"description": "OK", "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}": {
            "get": {"operationId": "getShiftChecklist", "tags": ["Checklists"], "summary": "Open a shift checklist",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ShiftSnapshot"}},
                    "400": {"description": "Invalid date or shift", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/watch": {
            "get": {"operationId": "watchShift", "tags": ["Checklists"], "summary": "Watch a shift (websocket)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"},
                    {"type": "string", "name": "access_token", "in": "query"}],
                "responses": {"101": {"description": "Switching Protocols; messages are snapshots"}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/items/{itemId}/toggle": {
            "post": {"operationId": "toggleChecklistItem", "tags": ["Checklists"], "summary": "Toggle an item",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"},
                    {"type": "string", "name": "itemId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ItemView"}},
                    "409": {"description": "Shift locked", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/submit": {
            "post": {"operationId": "submitShift", "tags": ["Checklists"], "summary": "Submit and lock a shift",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ShiftSnapshot"}},
                    "409": {"description": "Already locked", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/reseed": {
            "post": {"operationId": "reseedShift", "tags": ["Checklists"], "summary": "Reseed a shift (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ShiftSnapshot"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/reset": {
            "post": {"operationId": "resetShift", "tags": ["Checklists"], "summary": "Reset a shift (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/services.ShiftSnapshot"}}}}
        },
        "/restaurants/{restId}/checklists/{date}/{shift}/export": {
            "get": {"operationId": "exportShift", "tags": ["Checklists"], "summary": "Export a shift as a spreadsheet",
                "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/date"}, {"$ref": "#/parameters/shift"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}}
        },
        "/restaurants/{restId}/settings": {
            "get": {"operationId": "getSettings", "tags": ["Settings"], "summary": "Restaurant settings (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/restaurants/{restId}/settings/templates/{shift}": {
            "put": {"operationId": "saveTemplate", "tags": ["Settings"], "summary": "Save a duty template (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/shift"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SaveTemplateRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TemplateResponse"}}}}
        },
        "/restaurants/{restId}/settings/templates/{shift}/edits": {
            "post": {"operationId": "editTemplate", "tags": ["Settings"], "summary": "Edit a duty template (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/shift"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.EditTemplateRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TemplateResponse"}}}}
        },
        "/restaurants/{restId}/settings/templates/{shift}/bulk": {
            "post": {"operationId": "bulkTemplate", "tags": ["Settings"], "summary": "Bulk-replace a duty template (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/shift"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.BulkTemplateRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TemplateResponse"}}}}
        },
        "/restaurants/{restId}/settings/lock-times/{shift}": {
            "put": {"operationId": "setLockTime", "tags": ["Settings"], "summary": "Set a shift lock time (admin)",
                "parameters": [{"$ref": "#/parameters/restId"}, {"$ref": "#/parameters/shift"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetLockTimeRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LockTimeResponse"}}}}
        }
    },
    "parameters": {
        "restId": {"type": "string", "name": "restId", "in": "path", "required": true},
        "date": {"type": "string", "format": "date", "name": "date", "in": "path", "required": true},
        "shift": {"type": "string", "enum": ["open", "mid", "close"], "name": "shift", "in": "path", "required": true}
    },
    "definitions": {
        "handlers.ErrorResponse": {"type": "object", "properties": {
            "request_id": {"type": "string"}, "code": {"type": "string"}, "message": {"type": "string"}}},
        "handlers.MeResponse": {"type": "object", "properties": {
            "uid": {"type": "string"}, "email": {"type": "string"}, "name": {"type": "string"}, "role": {"type": "string"},
            "restaurants": {"type": "array", "items": {"$ref": "#/definitions/services.RestaurantView"}}}},
        "handlers.ListRestaurantsResponse": {"type": "object", "properties": {
            "restaurants": {"type": "array", "items": {"$ref": "#/definitions/services.RestaurantView"}}}},
        "handlers.SaveTemplateRequest": {"type": "object", "properties": {
            "duties": {"type": "array", "items": {"$ref": "#/definitions/services.Duty"}}}},
        "handlers.EditTemplateRequest": {"type": "object", "properties": {
            "ops": {"type": "array", "items": {"$ref": "#/definitions/services.EditOp"}}}},
        "handlers.BulkTemplateRequest": {"type": "object", "properties": {"text": {"type": "string"}}},
        "handlers.SetLockTimeRequest": {"type": "object", "properties": {"lock_time": {"type": "string", "example": "05:00"}}},
        "handlers.TemplateResponse": {"type": "object", "properties": {
            "shift": {"type": "string"}, "duties": {"type": "array", "items": {"$ref": "#/definitions/services.Duty"}}}},
        "handlers.LockTimeResponse": {"type": "object", "properties": {
            "shift": {"type": "string"}, "lock_time": {"type": "string"}}},
        "services.Duty": {"type": "object", "properties": {"title": {"type": "string"}, "priority": {"type": "boolean"}}},
        "services.EditOp": {"type": "object", "properties": {
            "op": {"type": "string", "enum": ["add", "remove", "update_title", "set_priority", "move_up", "move_down"]},
            "index": {"type": "integer"}, "title": {"type": "string"}, "priority": {"type": "boolean"}}},
        "services.RestaurantView": {"type": "object", "properties": {
            "id": {"type": "string"}, "name": {"type": "string"}, "business_date": {"type": "string"}}},
        "services.ItemView": {"type": "object", "properties": {
            "id": {"type": "string"}, "order": {"type": "integer"}, "title": {"type": "string"}, "priority": {"type": "boolean"},
            "checked": {"type": "boolean"}, "checked_by_uid": {"type": "string"}, "checked_by_name": {"type": "string"},
            "checked_at": {"type": "string", "format": "date-time"}}},
        "services.ShiftSnapshot": {"type": "object", "properties": {
            "restaurant_id": {"type": "string"}, "restaurant_name": {"type": "string"}, "business_date": {"type": "string"},
            "shift": {"type": "string"}, "locked": {"type": "boolean"},
            "created_at": {"type": "string", "format": "date-time"}, "expire_at": {"type": "string", "format": "date-time"},
            "completed_at": {"type": "string", "format": "date-time"}, "completed_by_uid": {"type": "string"},
            "completed_by_name": {"type": "string"}, "lock_time": {"type": "string"},
            "lock_due_at": {"type": "string", "format": "date-time"},
            "total": {"type": "integer"}, "done": {"type": "integer"},
            "items": {"type": "array", "items": {"$ref": "#/definitions/services.ItemView"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Manager Checklists API",
	Description:      "Shift checklists for restaurant managers: seed from templates, check off duties, submit and lock.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
