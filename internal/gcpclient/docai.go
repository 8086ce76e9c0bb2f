package gcpclient

import (
	"context"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocAIAdapter implements service.OCRClient using Document AI's synchronous
// ProcessDocument RPC with inline bytes (ProcessRequest_RawDocument). The
// teacher's internal/gcpclient/docai.go processes objects already resident
// in GCS (ProcessRequest_GcsDocument); this core's documents arrive as
// in-memory upload bytes (internal/service/document.go's runOCR), so a
// GCS round-trip before extraction isn't needed.
type DocAIAdapter struct {
	client    *documentai.DocumentProcessorClient
	processor string
}

// NewDocAIAdapter creates a DocAIAdapter. processor is the full resource
// name projects/{p}/locations/{l}/processors/{id}; location is typically
// "us" or "eu" (Document AI's multi-region values).
func NewDocAIAdapter(ctx context.Context, location, processor string) (*DocAIAdapter, error) {
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewDocAIAdapter: %w", err)
	}
	return &DocAIAdapter{client: client, processor: processor}, nil
}

// ExtractText implements service.OCRClient.
func (a *DocAIAdapter) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	req := &documentaipb.ProcessRequest{
		Name: a.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mimeType,
			},
		},
	}
	resp, err := a.client.ProcessDocument(ctx, req)
	if err != nil {
		return "", fmt.Errorf("gcpclient.ExtractText: %w", err)
	}
	if resp.Document == nil {
		return "", fmt.Errorf("gcpclient.ExtractText: nil document in response")
	}
	return resp.Document.Text, nil
}

// Close releases the underlying gRPC connection.
func (a *DocAIAdapter) Close() error {
	return a.client.Close()
}
