// cmd/conferencia/main.go
package main

import (
	"log"

	"conferencia-service/internal/api/handlers"
	"conferencia-service/internal/api/responses"
	"conferencia-service/internal/core/conferencia"

	"github.com/gin-gonic/gin"
)

func main() {
	responses.InitLogger()

	conferenciaService := conferencia.NewService(responses.Logger())
	conferenciaHandler := handlers.NewConferenciaHandler(conferenciaService)

	router := gin.Default()

	apiV1 := router.Group("/api/v1")
	{
		// Sem Middleware -- Gateway lida com isso
		apiV1.POST("/conferencia/xml-nfce", conferenciaHandler.HandleXMLNFCe)
		apiV1.POST("/conferencia/nf3e", conferenciaHandler.HandleNF3e)
		apiV1.POST("/conferencia/nat-receita", conferenciaHandler.HandleNatReceita)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP", "service": "conferencia-service"})
	})

	const port = "8084"
	log.Printf("🚀 Conferencia Service (Go) iniciado e escutando na porta %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Falha ao iniciar o servidor de conferência: ", err)
	}
}
