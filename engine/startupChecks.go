package engine

import (
	"fmt"
	"os"

	"github.com/drummonds/pdf2jpg/config"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := tempRootChecks(serverHandler.ServerConfig); err != nil {
		return err
	}
	return rasterizerChecks(serverHandler.ServerConfig)
}

func rasterizerChecks(serverConfig config.ServerConfig) error {
	if serverConfig.Rasterizer != config.RasterizerMagick {
		Logger.Info("Using embedded rasterizer", "rasterizer", serverConfig.Rasterizer)
		return nil
	}
	if serverConfig.MagickPath == "" {
		Logger.Error("ImageMagick rasterizer selected but no executable was found")
		return fmt.Errorf("ImageMagick executable not found")
	}

	magickInfo, err := os.Stat(serverConfig.MagickPath)
	if err != nil {
		Logger.Error("ImageMagick executable not found", "path", serverConfig.MagickPath, "error", err)
		return err
	}
	if magickInfo.IsDir() {
		Logger.Error("ImageMagick path is a directory, not an executable", "path", serverConfig.MagickPath)
		return fmt.Errorf("ImageMagick path is a directory: %s", serverConfig.MagickPath)
	}
	Logger.Info("ImageMagick executable found and validated", "path", serverConfig.MagickPath, "mode", serverConfig.MagickMode)
	return nil
}

// tempRootChecks ensures the workspace root exists
func tempRootChecks(serverConfig config.ServerConfig) error {
	if serverConfig.TempRoot == "" {
		Logger.Error("Temp root not configured")
		return fmt.Errorf("temp root not configured")
	}

	// Check if directory exists
	rootInfo, err := os.Stat(serverConfig.TempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			Logger.Info("Creating temp root", "path", serverConfig.TempRoot)
			err = os.MkdirAll(serverConfig.TempRoot, 0755)
			if err != nil {
				Logger.Error("Failed to create temp root", "path", serverConfig.TempRoot, "error", err)
				return err
			}
			Logger.Info("Temp root created successfully", "path", serverConfig.TempRoot)
			return nil
		}
		Logger.Error("Error checking temp root", "path", serverConfig.TempRoot, "error", err)
		return err
	}

	// Check if it's actually a directory
	if !rootInfo.IsDir() {
		Logger.Error("Temp root exists but is not a directory", "path", serverConfig.TempRoot)
		return fmt.Errorf("temp root is not a directory: %s", serverConfig.TempRoot)
	}

	Logger.Info("Temp root exists", "path", serverConfig.TempRoot)
	return nil
}
