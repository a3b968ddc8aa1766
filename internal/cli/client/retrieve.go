package client

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type queryRequest struct {
	SessionID   string `json:"session_id"`
	Query       string `json:"query"`
	ForceSearch bool   `json:"force_search"`
}

// SearchResult mirrors one ranked result in a retrieval response.
type SearchResult struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	URL            string  `json:"url"`
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
}

type retrievalOutput struct {
	Context struct {
		SessionID string `json:"session_id"`
		Focus     struct {
			CourseCode  string `json:"course_code"`
			ProgramCode string `json:"program_code"`
		} `json:"focus"`
	} `json:"context"`
	Search *struct {
		Results   []SearchResult `json:"results"`
		Cached    bool           `json:"cached"`
		Degraded  bool           `json:"degraded"`
		ElapsedMs int64          `json:"elapsed_ms"`
	} `json:"search"`
	Decision struct {
		Search bool   `json:"search"`
		Rule   string `json:"rule"`
	} `json:"decision"`
}

type answerOutput struct {
	Answer    string          `json:"answer"`
	Retrieval retrievalOutput `json:"retrieval"`
}

func addQueryFlags(cmd *cobra.Command, session *string, force *bool) {
	cmd.Flags().StringVarP(session, "session", "s", "", "Conversation session ID (default: a new random session)")
	cmd.Flags().BoolVarP(force, "force", "f", false, "Search even when the decision engine would not")
}

// RetrieveCmd runs one retrieval cycle against the server.
func RetrieveCmd() *cobra.Command {
	var session string
	var force bool

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Retrieve search results and conversation context for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRetrieve(cmd, api, newQuery(session, args, force), outputJSON)
		},
	}
	addQueryFlags(cmd, &session, &force)
	return cmd
}

// AskCmd asks the server for a generated answer.
func AskCmd() *cobra.Command {
	var session string
	var force bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question and print the generated answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAsk(cmd, api, newQuery(session, args, force), outputJSON)
		},
	}
	addQueryFlags(cmd, &session, &force)
	return cmd
}

func newQuery(session string, args []string, force bool) queryRequest {
	if session == "" {
		session = uuid.NewString()
	}
	return queryRequest{SessionID: session, Query: strings.Join(args, " "), ForceSearch: force}
}

func runRetrieve(cmd *cobra.Command, api *APIClient, req queryRequest, outputJSON bool) error {
	resp, err := api.Post(cmd.Context(), "/retrieve", req)
	if err != nil {
		return fmt.Errorf("failed to retrieve: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		var raw json.RawMessage = resp.Data
		return printJSON(out, raw)
	}

	var result retrievalOutput
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse retrieval: %w", err)
	}
	printRetrieval(out, result)
	return nil
}

func runAsk(cmd *cobra.Command, api *APIClient, req queryRequest, outputJSON bool) error {
	resp, err := api.Post(cmd.Context(), "/answer", req)
	if err != nil {
		return fmt.Errorf("failed to get answer: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		var raw json.RawMessage = resp.Data
		return printJSON(out, raw)
	}

	var result answerOutput
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}
	fmt.Fprintln(out, result.Answer)
	if result.Retrieval.Search != nil && len(result.Retrieval.Search.Results) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for _, r := range result.Retrieval.Search.Results {
			fmt.Fprintf(out, "  - %s (%s)\n", r.Title, r.URL)
		}
	}
	return nil
}

func printRetrieval(out io.Writer, r retrievalOutput) {
	fmt.Fprintf(out, "Session: %s\n", r.Context.SessionID)
	fmt.Fprintf(out, "Decision: search=%t rule=%s\n", r.Decision.Search, r.Decision.Rule)
	if focus := strings.TrimSpace(r.Context.Focus.CourseCode + " " + r.Context.Focus.ProgramCode); focus != "" {
		fmt.Fprintf(out, "Focus: %s\n", focus)
	}
	if r.Search == nil {
		fmt.Fprintln(out, "No search performed.")
		return
	}

	flags := ""
	if r.Search.Cached {
		flags += " cached"
	}
	if r.Search.Degraded {
		flags += " degraded"
	}
	fmt.Fprintf(out, "Results: %d (%dms)%s\n\n", len(r.Search.Results), r.Search.ElapsedMs, flags)
	for i, res := range r.Search.Results {
		fmt.Fprintf(out, "%d. [%.2f] %s\n", i+1, res.RelevanceScore, res.Title)
		fmt.Fprintf(out, "   %s  (%s)\n", res.URL, res.Source)
	}
}
