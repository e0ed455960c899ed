package client

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

type initUploadResponse struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
	UploadURL  string `json:"upload_url"`
}

type completeUploadResponse struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF for ingestion",
		Long:  "Uploads a PDF to object storage and queues it for background ingestion.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runUpload(cmd, args[0], contentType, outputJSON)
		},
	}

	cmd.Flags().StringVar(&contentType, "content-type", "application/pdf", "Content type of the uploaded file")

	return cmd
}

func runUpload(cmd *cobra.Command, filePath, contentType string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/documents/upload/init", map[string]string{
		"filename":     filepath.Base(filePath),
		"content_type": contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to start upload: %w", err)
	}

	var initResp initUploadResponse
	if err := json.Unmarshal(resp.Data, &initResp); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}

	if err := api.UploadFile(initResp.UploadURL, filePath, contentType); err != nil {
		return err
	}

	resp, err = api.Post("/documents/upload/complete", map[string]string{
		"document_id": initResp.DocumentID,
	})
	if err != nil {
		return fmt.Errorf("failed to complete upload: %w", err)
	}

	var completeResp completeUploadResponse
	if err := json.Unmarshal(resp.Data, &completeResp); err != nil {
		return fmt.Errorf("failed to parse complete response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(completeResp, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Uploaded %s\n", filePath)
		fmt.Printf("Document ID: %s\n", completeResp.DocumentID)
		fmt.Printf("Ingest job %s queued (%s)\n", completeResp.JobID, completeResp.Status)
	}

	return nil
}
