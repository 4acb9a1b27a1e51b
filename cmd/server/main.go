package main

import (
	"os"

	"github.com/Brownie44l1/image-validator/internal/config"
	"github.com/Brownie44l1/image-validator/internal/model"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg = config.Default()

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Image validation service",
	Long:         "Classifies uploaded images as valid or invalid with a MobileNetV2 model served through ONNX Runtime.",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	cfg.BindServeFlags(rootCmd)
	rootCmd.AddCommand(classifyCmd)
}

// newLoader builds the model loader from the parsed configuration.
func newLoader() (*model.Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.SetupLogging(cfg.LogLevel); err != nil {
		return nil, err
	}
	device, err := model.ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	return model.NewLoader(cfg.ModelPath,
		model.WithDevice(device),
		model.WithOpener(model.ONNXOpener(model.MobileNet, cfg.ORTLibPath)),
	), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
