package engine

import (
	"context"
	"net/http"
	"time"

	"github.com/drummonds/pdf2jpg/config"
	"github.com/labstack/echo/v4"
)

// formParseMessage is the fixed message clients get when the upload cannot be read
const formParseMessage = "Error procesando PDF"

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Converter    *Converter
}

// ConvertResponse is the success body of the conversion endpoint
type ConvertResponse struct {
	Images []string `json:"images"` // base64 encoded JPEG, one per page in page order
}

// ErrorResponse is the failure body of the conversion endpoint
type ErrorResponse struct {
	Error string    `json:"error"`
	Kind  ErrorKind `json:"kind"`
}

// AddRoutes registers the API routes on the handler's echo instance
func (serverHandler *ServerHandler) AddRoutes() {
	serverHandler.Echo.POST("/api/convertPdfToJpg", serverHandler.ConvertPdfToJpg)
	serverHandler.Echo.POST("/api/convert", serverHandler.ConvertPdfToJpg)
	serverHandler.Echo.GET("/api/health", serverHandler.Health)
}

// ConvertPdfToJpg converts every page of an uploaded PDF to a base64 JPEG
// @Summary Convert a PDF to JPEG pages
// @Description Rasterizes each page of the uploaded PDF and returns the JPEGs base64 encoded in page order
// @Tags Conversion
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF document"
// @Param calidad formData int false "JPEG quality 1-100 (default: 20)"
// @Success 200 {object} ConvertResponse "Page images"
// @Failure 500 {object} ErrorResponse "Upload, conversion or filesystem failure"
// @Router /convertPdfToJpg [post]
func (serverHandler *ServerHandler) ConvertPdfToJpg(c echo.Context) error {
	request := c.Request()
	requestID := c.Response().Header().Get(echo.HeaderXRequestID)

	if err := request.ParseMultipartForm(serverHandler.maxMemory()); err != nil {
		return serverHandler.formParseFailure(c, requestID, formParseError("parse form", err))
	}
	defer request.MultipartForm.RemoveAll() //multipart spills large uploads to disk

	file, fileHeader, err := request.FormFile("file")
	if err != nil {
		return serverHandler.formParseFailure(c, requestID, formParseError("read file field", err))
	}
	defer file.Close()

	quality := ParseQuality(request.FormValue("calidad"), serverHandler.ServerConfig.DefaultQuality)

	ctx := request.Context()
	if serverHandler.ServerConfig.ConvertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(serverHandler.ServerConfig.ConvertTimeout)*time.Second)
		defer cancel()
	}

	images, err := serverHandler.Converter.Convert(ctx, file, fileHeader.Filename, ConversionRequest{Quality: quality})
	if err != nil {
		kind := KindOf(err)
		Logger.Error("PDF conversion failed", "requestID", requestID, "file", fileHeader.Filename, "kind", kind, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: kind})
	}

	return c.JSON(http.StatusOK, ConvertResponse{Images: images})
}

func (serverHandler *ServerHandler) formParseFailure(c echo.Context, requestID string, err error) error {
	Logger.Error("Unable to parse upload form", "requestID", requestID, "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: formParseMessage, Kind: KindFormParse})
}

// maxMemory is how much of a multipart body is kept in memory before spilling to disk
func (serverHandler *ServerHandler) maxMemory() int64 {
	if serverHandler.ServerConfig.MaxUploadMB > 0 {
		return int64(serverHandler.ServerConfig.MaxUploadMB) << 20
	}
	return 32 << 20
}

// Health reports service status
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "pdf2jpg",
		"renderer":  serverHandler.Converter.Renderer.Name(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
