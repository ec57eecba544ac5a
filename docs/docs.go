// Package docs регистрирует Swagger-документ Glift Billing API в swag.
// Документ соответствует аннотациям обработчиков в internal/http/handlers.
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
        "/subscription-details": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Возвращает тариф пользователя по данным внешнего биллинга и обновляет профиль",
                "produces": ["application/json"],
                "tags": ["Subscriptions"],
                "summary": "Текущая подписка",
                "responses": {
                    "200": {"description": "Действующая подписка", "schema": {"$ref": "#/definitions/models.EffectiveSubscription"}},
                    "401": {"description": "Пользователь не авторизован", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Ошибка биллинга или хранилища", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/setup-subscription": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Создаёт премиум-подписку (с пробным периодом, если он ещё не использован)",
                "produces": ["application/json"],
                "tags": ["Subscriptions"],
                "summary": "Оформить подписку",
                "responses": {
                    "200": {"description": "Подписка оформлена", "schema": {"$ref": "#/definitions/models.SubscriptionChange"}},
                    "401": {"description": "Пользователь не авторизован", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Ошибка биллинга", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/update-subscription": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "premium оформляет или возобновляет подписку, starter отменяет её в конце периода",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Subscriptions"],
                "summary": "Сменить тариф",
                "parameters": [
                    {"description": "Целевой тариф", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/update.Request"}}
                ],
                "responses": {
                    "200": {"description": "Тариф изменён", "schema": {"$ref": "#/definitions/models.SubscriptionChange"}},
                    "400": {"description": "Некорректный тариф", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Пользователь не авторизован", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Ошибка биллинга или хранилища", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/webhooks/billing": {
            "post": {
                "description": "Принимает подписанное событие внешнего биллинга и применяет его к профилю",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Webhooks"],
                "summary": "Вебхук биллинга",
                "parameters": [
                    {"type": "string", "description": "Подпись события", "name": "Stripe-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "Событие принято", "schema": {"$ref": "#/definitions/billing.Ack"}},
                    "400": {"description": "Неверная подпись или тело", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "413": {"description": "Слишком большое тело", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "500": {"description": "Событие не применено, нужна повторная доставка", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "billing.Ack": {
            "type": "object",
            "properties": {
                "outcome": {"type": "string", "example": "processed"},
                "received": {"type": "boolean", "example": true}
            }
        },
        "models.EffectiveSubscription": {
            "type": "object",
            "properties": {
                "has_history": {"type": "boolean"},
                "period_end": {"type": "string"},
                "plan": {"type": "string", "enum": ["starter", "premium"]},
                "status": {"type": "string"},
                "subscription_id": {"type": "string"},
                "trial_end": {"type": "string"},
                "will_cancel": {"type": "boolean"}
            }
        },
        "models.SubscriptionChange": {
            "type": "object",
            "properties": {
                "client_secret": {"type": "string"},
                "plan": {"type": "string", "enum": ["starter", "premium"]},
                "status": {"type": "string"},
                "subscription_id": {"type": "string"},
                "will_cancel": {"type": "boolean"}
            }
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "update.Request": {
            "type": "object",
            "required": ["plan"],
            "properties": {
                "plan": {"type": "string", "enum": ["starter", "premium"], "example": "premium"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Glift Billing API",
	Description:      "Синхронизация тарифа пользователя с внешним биллингом",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
