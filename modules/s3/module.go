// Package s3 uploads files to pre-signed S3 URLs.
package s3

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/officegrid/internal/kernel"
	"github.com/specialistvlad/officegrid/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input is read from the function parameter.
type Input struct {
	Action     string `mapstructure:"action"`
	SourcePath string `mapstructure:"source_path"`
	UploadURL  string `mapstructure:"upload_url"`
}

func readInput(parameter any) (*Input, error) {
	in := Input{Action: "upload"}
	if err := registry.DecodeParameter(parameter, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// clientOf returns the *http.Client managed object of the function, falling
// back to the default client.
func clientOf(fc *kernel.FunctionContext) *http.Client {
	if c, ok := fc.Object(0).(*http.Client); ok {
		return c
	}
	return http.DefaultClient
}

func upload(fc *kernel.FunctionContext, input *Input) (any, error) {
	logger := fc.Logger().With("action", "upload")

	file, err := os.Open(input.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file '%s': %w", input.SourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file stats for '%s': %w", input.SourcePath, err)
	}

	req, err := http.NewRequestWithContext(fc.Context(), http.MethodPut, input.UploadURL, file)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(input.SourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file to S3", "source", input.SourcePath, "size", stat.Size(), "contentType", contentType)

	resp, err := clientOf(fc).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded file", "status", resp.Status)
	return map[string]any{"success": true, "status": resp.Status}, nil
}

// S3 performs the action named in the parameter.
func S3(fc *kernel.FunctionContext) (any, error) {
	input, err := readInput(fc.Parameter())
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(input.Action) {
	case "upload":
		return upload(fc, input)
	case "download":
		return nil, fmt.Errorf("s3 action 'download' is not yet implemented")
	default:
		return nil, fmt.Errorf("unknown s3 action: '%s'", input.Action)
	}
}

// Register registers the function body.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("s3", S3)
}
