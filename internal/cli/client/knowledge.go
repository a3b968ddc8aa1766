package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Knowledge represents a knowledge item from the API.
type Knowledge struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Priority    int      `json:"priority"`
	SourceURL   string   `json:"source_url"`
	IsActive    bool     `json:"is_active"`
	EntityCodes []string `json:"entity_codes,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type knowledgeList struct {
	Items   []Knowledge `json:"items"`
	Cursor  string      `json:"cursor,omitempty"`
	HasMore bool        `json:"has_more"`
}

// KnowledgeCmd groups the read-only knowledge base commands.
func KnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Short:   "Browse the crawled knowledge base",
		Aliases: []string{"kb"},
	}
	cmd.AddCommand(knowledgeGetCmd())
	cmd.AddCommand(knowledgeListCmd())
	return cmd
}

func knowledgeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <knowledge_id>",
		Short:   "Get a knowledge item by ID",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKnowledgeGet(cmd, api, args[0], outputJSON)
		},
	}
}

func knowledgeListCmd() *cobra.Command {
	var category, cursor string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge items, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runKnowledgeList(cmd, api, category, cursor, limit, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category (e.g. course-information)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Page size")

	return cmd
}

func runKnowledgeGet(cmd *cobra.Command, api *APIClient, id string, outputJSON bool) error {
	resp, err := api.Get(cmd.Context(), "/knowledge/"+url.PathEscape(id))
	if err != nil {
		return fmt.Errorf("failed to get knowledge: %w", err)
	}

	var k Knowledge
	if err := json.Unmarshal(resp.Data, &k); err != nil {
		return fmt.Errorf("failed to parse knowledge: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, k)
	}

	fmt.Fprintf(out, "Title: %s\n", k.Title)
	fmt.Fprintf(out, "Category: %s\n", k.Category)
	fmt.Fprintf(out, "Priority: %d\n", k.Priority)
	fmt.Fprintf(out, "Source: %s\n", k.SourceURL)
	if len(k.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(k.Tags, ", "))
	}
	fmt.Fprintf(out, "Updated: %s\n", k.UpdatedAt)
	fmt.Fprintln(out)
	fmt.Fprintln(out, k.Content)
	return nil
}

func runKnowledgeList(cmd *cobra.Command, api *APIClient, category, cursor string, limit int, outputJSON bool) error {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/knowledge"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to list knowledge: %w", err)
	}

	var list knowledgeList
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse knowledge list: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return printJSON(out, list)
	}

	if len(list.Items) == 0 {
		fmt.Fprintln(out, "No knowledge items found.")
		return nil
	}
	for _, k := range list.Items {
		fmt.Fprintf(out, "%s  [%s p%d]  %s\n", k.ID, k.Category, k.Priority, k.Title)
	}
	if list.HasMore {
		fmt.Fprintf(out, "\nMore results: --cursor %s\n", list.Cursor)
	}
	return nil
}
