package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Brownie44l1/image-validator/internal/inference"
	"github.com/Brownie44l1/image-validator/internal/model"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify one image file and print the prediction as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	cfg.BindModelFlags(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	loader, err := newLoader()
	if err != nil {
		return err
	}
	defer model.DestroyRuntime()
	defer loader.Close()

	start := time.Now()
	pred, err := inference.NewClassifier(loader).Classify(cmd.Context(), data)
	if err != nil {
		return err
	}
	log.Debug("[Classify] Predicted in ", time.Since(start).String())

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pred)
}
