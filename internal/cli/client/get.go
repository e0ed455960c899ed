package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Document represents a document record from the API.
type Document struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"object_key"`
	Filename    string `json:"filename,omitempty"`
	Status      string `json:"status"`
	Title       string `json:"title,omitempty"`
	Authors     string `json:"authors,omitempty"`
	JournalName string `json:"journal_name,omitempty"`
	Year        *int   `json:"year,omitempty"`
	DOI         string `json:"doi,omitempty"`
	Abstract    string `json:"abstract,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <document_id>",
		Short:   "Get a document by ID",
		Long:    "Retrieves a document record with its ingestion status and extracted metadata.",
		Aliases: []string{"status"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(cmd, args[0], outputJSON)
		},
	}
}

func runGet(cmd *cobra.Command, documentID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/documents/%s", documentID))
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("ID: %s\n", doc.ID)
	fmt.Printf("Status: %s\n", doc.Status)
	fmt.Printf("Object key: %s\n", doc.ObjectKey)
	if doc.Filename != "" {
		fmt.Printf("Filename: %s\n", doc.Filename)
	}
	if doc.Title != "" {
		fmt.Printf("Title: %s\n", doc.Title)
	}
	if doc.Authors != "" {
		fmt.Printf("Authors: %s\n", doc.Authors)
	}
	if doc.JournalName != "" {
		fmt.Printf("Journal: %s\n", doc.JournalName)
	}
	if doc.Year != nil {
		fmt.Printf("Year: %d\n", *doc.Year)
	}
	if doc.DOI != "" {
		fmt.Printf("DOI: %s\n", doc.DOI)
	}
	if doc.Abstract != "" {
		fmt.Println()
		fmt.Println("--- Abstract ---")
		fmt.Println(doc.Abstract)
	}
	fmt.Printf("Created: %s\n", doc.CreatedAt)
	fmt.Printf("Updated: %s\n", doc.UpdatedAt)

	return nil
}
