package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/pdf2jpg/config"
	engine "github.com/drummonds/pdf2jpg/engine"
	"github.com/drummonds/pdf2jpg/engine/pdfrenderer"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	config.Logger = Logger
	engine.Logger = Logger
}

// @title pdf2jpg API
// @version 1.0
// @description Converts uploaded PDF documents to base64 encoded JPEG pages

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Conversion
// @tag.description PDF to JPEG conversion

// @tag.name Health
// @tag.description Service health check

func main() {
	port := flag.String("port", "", "Port to run the server on (overrides SERVER_PORT)")
	flag.Parse()

	serverConfig, logger := config.SetupServer()
	injectGlobals(logger) //inject the logger into all of the packages
	if *port != "" {
		serverConfig.ListenAddrPort = *port
	}

	renderer, err := pdfrenderer.NewRenderer(serverConfig.Rasterizer, serverConfig.MagickPath, serverConfig.MagickMode)
	if err != nil {
		Logger.Error("Unable to create rasterizer", "rasterizer", serverConfig.Rasterizer, "error", err)
		os.Exit(1)
	}
	defer renderer.Close()
	Logger.Info("Rasterizer ready", "name", renderer.Name())

	e, serverHandler := newServer(serverConfig, renderer)

	if err := serverHandler.StartupChecks(); err != nil { //Run all the sanity checks
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	if scheduler := serverHandler.InitializeSchedules(); scheduler != nil {
		defer scheduler.Stop()
	}

	if serverConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	addr := fmt.Sprintf("%s:%s", serverConfig.ListenAddrIP, serverConfig.ListenAddrPort)
	Logger.Info("Starting HTTP server", "address", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		if isAddressInUse(err) {
			Logger.Error("Port already in use", "port", serverConfig.ListenAddrPort)
		} else {
			Logger.Error("Failed to start server", "error", err)
		}
		os.Exit(1)
	}
}

// newServer builds the echo instance with middleware and routes
func newServer(serverConfig config.ServerConfig, renderer pdfrenderer.Renderer) (*echo.Echo, *engine.ServerHandler) {
	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		// For other errors, use default handler
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	if serverConfig.MaxUploadMB > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", serverConfig.MaxUploadMB)))
	}
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${id} ${method} ${uri} ${status} ${latency_human}\n",
	}))

	serverHandler := &engine.ServerHandler{
		Echo:         e,
		ServerConfig: serverConfig,
		Converter: &engine.Converter{
			Renderer: renderer,
			TempRoot: serverConfig.TempRoot,
			Density:  serverConfig.Density,
			Width:    serverConfig.Width,
		},
	}
	serverHandler.AddRoutes()
	return e, serverHandler
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
