package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Brownie44l1/image-validator/internal/model"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ModelFile is the weights file name looked up under <root>/models.
const ModelFile = "best_mobilenet_model.onnx"

type Config struct {
	Addr         string
	ModelPath    string
	ORTLibPath   string
	Device       string
	Preload      bool
	Release      bool
	LogLevel     string
	SentryDSN    string
	MaxUpload    int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Default returns the configuration before flags are applied. PORT,
// MODEL_PATH, ORT_LIB_PATH and SENTRY_DSN override the built-in defaults.
func Default() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	modelPath := os.Getenv("MODEL_PATH")
	if modelPath == "" {
		modelPath = DefaultModelPath()
	}

	return Config{
		Addr:         ":" + port,
		ModelPath:    modelPath,
		ORTLibPath:   os.Getenv("ORT_LIB_PATH"),
		Device:       string(model.DeviceAuto),
		LogLevel:     "info",
		SentryDSN:    os.Getenv("SENTRY_DSN"),
		MaxUpload:    10 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// BindModelFlags registers the flags needed to load the model.
func (c *Config) BindModelFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&c.ModelPath, "model", c.ModelPath, "Path to the ONNX weights file")
	f.StringVar(&c.ORTLibPath, "ort-lib", c.ORTLibPath, "Path to the onnxruntime shared library")
	f.StringVar(&c.Device, "device", c.Device, "Compute device: auto, cpu or cuda")
	f.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
}

// BindServeFlags registers the HTTP server flags on top of the model flags.
func (c *Config) BindServeFlags(cmd *cobra.Command) {
	c.BindModelFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&c.Addr, "addr", c.Addr, "Address to listen on")
	f.BoolVar(&c.Preload, "preload", c.Preload, "Load the model at startup instead of on the first request")
	f.BoolVar(&c.Release, "release", c.Release, "Run gin in release mode")
	f.StringVar(&c.SentryDSN, "sentry-dsn", c.SentryDSN, "Sentry DSN for server-side error reports")
	f.Int64Var(&c.MaxUpload, "max-upload", c.MaxUpload, "Maximum request body size in bytes")
	f.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "HTTP read timeout")
	f.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "HTTP write timeout")
}

func (c Config) Validate() error {
	if _, err := model.ParseDevice(c.Device); err != nil {
		return err
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if c.MaxUpload <= 0 {
		return fmt.Errorf("max upload must be positive, got %d", c.MaxUpload)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SetupLogging configures the global logrus logger.
func SetupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	return nil
}

// DefaultModelPath resolves <root>/models/best_mobilenet_model.onnx, where
// root is the working directory or the repository root when run from
// cmd/server.
func DefaultModelPath() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Warn("[Config] Couldn't get working directory: ", err.Error())
		wd = "."
	}
	return filepath.Join(projectRoot(wd), "models", ModelFile)
}

func projectRoot(wd string) string {
	if filepath.Base(wd) == "server" && filepath.Base(filepath.Dir(wd)) == "cmd" {
		return filepath.Join(wd, "..", "..")
	}
	return wd
}
