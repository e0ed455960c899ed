package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// IngestCmd creates the ingest command.
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <object_key>",
		Short: "Ingest an object already in the bucket",
		Long:  "Runs the full ingestion pipeline synchronously for a PDF that already exists in object storage.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runIngest(cmd, args[0], outputJSON)
		},
	}
}

func runIngest(cmd *cobra.Command, objectKey string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/documents/ingest", map[string]string{
		"object_key": objectKey,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Ingested %s\n", objectKey)
		fmt.Printf("Document ID: %s\n", doc.ID)
		fmt.Printf("Status: %s\n", doc.Status)
		if doc.Title != "" {
			fmt.Printf("Title: %s\n", doc.Title)
		}
	}

	return nil
}
