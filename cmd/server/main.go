package main

import (
	"log"
	"os"
	"runtime"

	"backend-huella/internal/config"
	"backend-huella/internal/http/handler"
	"backend-huella/internal/http/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	app := fiber.New(fiber.Config{
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	config.LoadEnv()
	config.InitRedis()
	config.InitDB()
	defer config.CloseDB()

	handler.InitAccessService()

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Huella API en línea",
		})
	})

	app.Get("/ops/health", middleware.BasicAuth(), handler.Health)

	app.Post("/huella/login", handler.Login)
	app.Get("/api/config", handler.GetConfig)
	app.Get("/api/config/estado", handler.GetConfigEstado)

	// Chat de guardias (token por query string)
	app.Get("/ws/chat", handler.ChatUpgrade(), websocket.New(handler.ChatWebSocket))

	// Base API (todo requiere sesión)
	api := app.Group("/api", middleware.JWTAuth())

	// Auth
	api.Post("/logout", handler.Logout)

	// Credenciales QR y bitácora (guardias y administradores)
	api.Post("/qr/generar/:id", handler.GenerarQR)
	api.Post("/qr/validar", handler.ValidarQR)
	api.Post("/accesos", handler.RegistrarAcceso)
	api.Get("/accesos", handler.GetAccessRecords)
	api.Get("/accesos/paginate", handler.GetAccessRecordsPagination)
	api.Get("/accesos/ocupacion", handler.GetOcupacion)

	// Chat historial
	api.Get("/chat/mensajes", handler.GetChatMessages)

	// Personas
	api.Get("/personas", handler.GetAllPersons)
	api.Get("/personas/paginate", handler.GetAllPersonsPagination)
	api.Get("/personas/:id", handler.GetPersonByID)
	api.Post("/personas", handler.CreatePerson)
	api.Put("/personas/:id", handler.UpdatePerson)
	api.Delete("/personas/:id", middleware.RoleAuth("ADMINISTRADOR"), handler.DeletePerson)

	// ===== RUTAS DE ADMINISTRADOR =====
	// Usuarios
	api.Get("/usuarios", middleware.RoleAuth("ADMINISTRADOR"), handler.GetAllUsers)
	api.Get("/usuarios/:id", middleware.RoleAuth("ADMINISTRADOR"), handler.GetUserByID)
	api.Post("/usuarios", middleware.RoleAuth("ADMINISTRADOR"), handler.CreateUser)
	api.Put("/usuarios/:id", middleware.RoleAuth("ADMINISTRADOR"), handler.UpdateUser)
	api.Delete("/usuarios/:id/permanent", middleware.RoleAuth("ADMINISTRADOR"), handler.HardDeleteUser)

	// Horario de visitas
	api.Post("/config", middleware.RoleAuth("ADMINISTRADOR"), handler.CreateConfig)
	api.Put("/config", middleware.RoleAuth("ADMINISTRADOR"), handler.UpdateConfig)

	addr := os.Getenv("APP_HOST") + ":" + config.GetEnv("APP_PORT", "3000")
	log.Println("Servidor Huella en", addr)
	log.Fatal(app.Listen(addr))
}
