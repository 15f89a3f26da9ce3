package main

// @title Catalog Sync Service API
// @version 1.0
// @description Storefront catalog synchronized from upstream reseller providers
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT

// @host localhost:8081
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Catalog
// @tag.description Storefront catalog reads and statistics

// @tag.name Sync
// @tag.description Provider synchronization

// @tag.name Health
// @tag.description Health check endpoints

// @tag.name Swagger
// @tag.description Swagger documentation endpoints
