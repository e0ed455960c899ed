package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type downloadResponse struct {
	DownloadURL string `json:"download_url"`
}

// DownloadCmd creates the download command.
func DownloadCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "download <document_id>",
		Short: "Download a document's original PDF",
		Long:  "Fetches a presigned download URL for the stored PDF and saves it locally.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Output path (defaults to the stored filename)")

	return cmd
}

func runDownload(cmd *cobra.Command, documentID, outputPath string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	if outputPath == "" {
		resp, err := api.Get(fmt.Sprintf("/documents/%s", documentID))
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal(resp.Data, &doc); err != nil {
			return fmt.Errorf("failed to parse document: %w", err)
		}
		outputPath = doc.Filename
		if outputPath == "" {
			outputPath = documentID + ".pdf"
		}
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s/download", documentID))
	if err != nil {
		return fmt.Errorf("failed to get download URL: %w", err)
	}

	var dl downloadResponse
	if err := json.Unmarshal(resp.Data, &dl); err != nil {
		return fmt.Errorf("failed to parse download response: %w", err)
	}

	if err := api.DownloadFile(dl.DownloadURL, outputPath); err != nil {
		return err
	}

	fmt.Printf("Downloaded to %s\n", outputPath)
	return nil
}
