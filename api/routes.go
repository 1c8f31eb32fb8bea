package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"petprint/pdf"
	"petprint/printer"
)

//go:embed templates/*.html
var templateFS embed.FS

// Config holds application configuration
type Config struct {
	Host        string
	Port        string
	MaxFileSize int64  // larger PDFs are listed but cannot be selected
	TempDir     string // merged documents are written here
	RootDir     string // when set, only directories below it can be listed
	Paper       string
}

// Service bundles the configuration with the collaborators the handlers use.
type Service struct {
	Config  *Config
	Engine  pdf.Engine
	Printer printer.Printer
	Viewer  printer.Viewer
}

func SetupRoutes(r *gin.Engine, svc *Service) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "petprint",
		})
	})

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"title": "PetPDFPrint",
		})
	})

	apiGroup := r.Group("/api/pdf")
	{
		apiGroup.GET("/list", func(c *gin.Context) { HandleList(c, svc) })
		apiGroup.POST("/print", func(c *gin.Context) { HandlePrint(c, svc) })
		apiGroup.POST("/save", func(c *gin.Context) { HandleSave(c, svc) })
	}
}
