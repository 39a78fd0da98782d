// Package docs registra la documentación OpenAPI servida en /swagger.
// Regenerar con: swag init -g cmd/api/main.go -o docs
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "invalid username or password"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["auth"],
                "summary": "Cambiar password",
                "responses": {"200": {"description": "OK"}, "401": {"description": "invalid username or password"}}
            }
        },
        "/users": {
            "get": {"tags": ["users"], "summary": "Listar usuarios", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["users"], "summary": "Crear usuario", "responses": {"201": {"description": "Created"}, "409": {"description": "username already exists"}}}
        },
        "/users/vets": {
            "get": {"tags": ["users"], "summary": "Listar vets activos", "responses": {"200": {"description": "OK"}}}
        },
        "/users/{userID}": {
            "get": {"tags": ["users"], "summary": "Obtener usuario", "responses": {"200": {"description": "OK"}, "404": {"description": "user not found"}}},
            "put": {"tags": ["users"], "summary": "Actualizar usuario", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["users"], "summary": "Borrar usuario", "responses": {"204": {"description": "No Content"}}}
        },
        "/pets": {
            "get": {"tags": ["pets"], "summary": "Listar mascotas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["pets"], "summary": "Crear mascota", "responses": {"201": {"description": "Created"}}}
        },
        "/pets/{petID}": {
            "get": {"tags": ["pets"], "summary": "Obtener mascota", "responses": {"200": {"description": "OK"}, "404": {"description": "pet not found"}}},
            "put": {"tags": ["pets"], "summary": "Actualizar mascota", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["pets"], "summary": "Borrar mascota", "responses": {"204": {"description": "No Content"}}}
        },
        "/pets/{petID}/procedures": {
            "post": {"tags": ["pets"], "summary": "Agregar procedimiento", "responses": {"200": {"description": "OK"}}}
        },
        "/pets/{petID}/photo": {
            "get": {"tags": ["pets"], "summary": "Descargar foto", "responses": {"200": {"description": "OK"}, "404": {"description": "no photo"}}},
            "post": {"tags": ["pets"], "summary": "Subir foto", "consumes": ["multipart/form-data"], "responses": {"200": {"description": "OK"}}}
        },
        "/procedures/catalog": {
            "get": {"tags": ["pets"], "summary": "Catálogo de procedimientos", "responses": {"200": {"description": "OK"}}}
        },
        "/appointments": {
            "get": {"tags": ["appointments"], "summary": "Listar citas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["appointments"], "summary": "Crear cita", "responses": {"201": {"description": "Created"}, "409": {"description": "slot_conflict"}}}
        },
        "/appointments/{appointmentID}": {
            "get": {"tags": ["appointments"], "summary": "Obtener cita", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["appointments"], "summary": "Actualizar cita", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["appointments"], "summary": "Borrar cita", "responses": {"204": {"description": "No Content"}}}
        },
        "/appointments/{appointmentID}/approve": {
            "post": {"tags": ["appointments"], "summary": "Aprobar cita", "responses": {"200": {"description": "OK"}, "403": {"description": "role_not_permitted"}}}
        },
        "/appointments/{appointmentID}/done": {
            "post": {"tags": ["appointments"], "summary": "Marcar cita realizada", "responses": {"200": {"description": "OK"}}}
        },
        "/prescriptions": {
            "get": {"tags": ["prescriptions"], "summary": "Listar recetas", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["prescriptions"], "summary": "Emitir receta", "responses": {"201": {"description": "Created"}}}
        },
        "/prescriptions/{rxID}": {
            "get": {"tags": ["prescriptions"], "summary": "Obtener receta", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["prescriptions"], "summary": "Actualizar receta", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["prescriptions"], "summary": "Borrar receta", "responses": {"204": {"description": "No Content"}}}
        },
        "/prescriptions/{rxID}/dispense": {
            "post": {"tags": ["prescriptions"], "summary": "Despachar receta", "responses": {"200": {"description": "OK"}}}
        },
        "/ops/log": {
            "get": {"tags": ["ops"], "summary": "Listar operaciones", "responses": {"200": {"description": "OK"}}}
        },
        "/reports/summary": {
            "get": {"tags": ["reports"], "summary": "Resumen de actividad", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Clinic Records API",
	Description:      "Historia clínica, turnos, recetas y reportes de una veterinaria.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
