// Package docs содержит OpenAPI описание HTTP фасада, которое отдается по /swagger/*
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/auth": {
            "post": {
                "tags": ["auth"],
                "summary": "Аутентификация аккаунта",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.AuthRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.AuthResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/lots/{subcategoryId}": {
            "get": {
                "tags": ["lots"],
                "summary": "Лоты подкатегории",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "subcategoryId", "in": "path", "required": true},
                    {"type": "string", "name": "golden_key", "in": "query", "required": true},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.LotSummaryDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/lots-by-user/{subcategoryId}/{userId}": {
            "get": {
                "tags": ["lots"],
                "summary": "Лоты пользователя в подкатегории",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "subcategoryId", "in": "path", "required": true},
                    {"type": "integer", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "name": "golden_key", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.LotDTO"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/create-lot": {
            "post": {
                "tags": ["lots"],
                "summary": "Создание лота",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "golden_key", "in": "query", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CreateLotRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.LotSummaryDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/lots/offerEdit": {
            "get": {
                "tags": ["lots"],
                "summary": "Поля формы лота",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "offer", "in": "query"},
                    {"type": "integer", "name": "node", "in": "query", "required": true},
                    {"type": "string", "name": "golden_key", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.OfferFieldsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/create-lot-from-fields": {
            "post": {
                "tags": ["lots"],
                "summary": "Создание лота из полей формы",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "golden_key", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.SaveLotResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/get_user_subcategories/{userId}": {
            "get": {
                "tags": ["lots"],
                "summary": "Подкатегории пользователя",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "userId", "in": "path", "required": true},
                    {"type": "string", "name": "golden_key", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "integer"}}}
                }
            }
        },
        "/copy-lots": {
            "post": {
                "tags": ["copy"],
                "summary": "Копирование лотов пользователя",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CopyLotsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CopyLotsResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/copy-lots/async": {
            "post": {
                "tags": ["copy"],
                "summary": "Асинхронное копирование лотов",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/dto.CopyLotsRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/dto.CopyJobDTO"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/copy-jobs/{jobId}": {
            "get": {
                "tags": ["copy"],
                "summary": "Состояние задачи копирования",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "jobId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CopyJobDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorResponse"}}
                }
            }
        },
        "/copy-stats/{userId}": {
            "get": {
                "tags": ["copy"],
                "summary": "Статистика копирования",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "integer", "name": "userId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CopyStatsDTO"}}
                }
            }
        }
    },
    "definitions": {
        "dto.AuthRequest": {
            "type": "object",
            "properties": {
                "golden_key": {"type": "string"},
                "user_agent": {"type": "string"}
            }
        },
        "dto.AuthResponse": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "id": {"type": "integer"},
                "csrftoken": {"type": "string"}
            }
        },
        "dto.LotSummaryDTO": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "price": {"type": "number"},
                "description": {"type": "string"},
                "seller_id": {"type": "integer"},
                "seller_username": {"type": "string"}
            }
        },
        "dto.LotDTO": {
            "type": "object",
            "properties": {
                "Id": {"type": "integer"},
                "Server": {"type": "string"},
                "Description": {"type": "string"},
                "Title": {"type": "string"},
                "Amount": {"type": "integer"},
                "Price": {"type": "number"},
                "Currency": {"type": "string"},
                "SellerId": {"type": "integer"},
                "SellerUsername": {"type": "string"},
                "AutoDelivery": {"type": "boolean"},
                "IsPromo": {"type": "boolean"},
                "Attributes": {"type": "object", "additionalProperties": {"type": "string"}},
                "SubcategoryId": {"type": "integer"},
                "CategoryName": {"type": "string"},
                "Html": {"type": "string"},
                "PublicLink": {"type": "string"}
            }
        },
        "dto.CreateLotRequest": {
            "type": "object",
            "properties": {
                "subcategory_id": {"type": "integer"},
                "price": {"type": "number"},
                "description": {"type": "string"}
            }
        },
        "dto.OfferFieldsResponse": {
            "type": "object",
            "properties": {
                "fields": {"type": "object", "additionalProperties": {"type": "string"}},
                "csrf_token": {"type": "string"}
            }
        },
        "dto.SaveLotResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "subcategory_id": {"type": "integer"},
                "seller_id": {"type": "integer"},
                "seller_username": {"type": "string"}
            }
        },
        "dto.CopyLotsRequest": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer"},
                "subcategory_id": {"type": "integer"},
                "golden_key": {"type": "string"}
            }
        },
        "dto.CopyFailureDTO": {
            "type": "object",
            "properties": {
                "lot_id": {"type": "integer"},
                "subcategory_id": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "dto.CopyLotsResponse": {
            "type": "object",
            "properties": {
                "copied_lots": {"type": "array", "items": {"$ref": "#/definitions/dto.LotDTO"}},
                "total": {"type": "integer"},
                "failed": {"type": "array", "items": {"$ref": "#/definitions/dto.CopyFailureDTO"}}
            }
        },
        "dto.CopyJobDTO": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string"},
                "user_id": {"type": "integer"},
                "created_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "result": {"$ref": "#/definitions/dto.CopyLotsResponse"},
                "error": {"type": "string"}
            }
        },
        "dto.CopyStatsDTO": {
            "type": "object",
            "properties": {
                "user_id": {"type": "integer"},
                "copied": {"type": "integer"},
                "failed": {"type": "integer"}
            }
        },
        "handlers.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"},
                "message": {"type": "string"},
                "detail": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo метаданные документа; Version и Host переопределяются при старте
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "funpay-bridge lot-service",
	Description:      "HTTP фасад над аккаунтом FunPay: лоты, формы и копирование",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
