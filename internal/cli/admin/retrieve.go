package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// RetrieveCmd runs one retrieval cycle directly against the database and
// prints the result as JSON.
func RetrieveCmd() *cobra.Command {
	var session string
	var force bool

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Run the retrieval core once and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.shutdown()

			ctx := context.Background()
			a, err := newApp(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.close()

			if session == "" {
				session = uuid.NewString()
			}
			out, err := a.retrieval.RetrieveAndBuildContext(ctx, session, strings.Join(args, " "), force)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Conversation session ID (default: a new random session)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Search even when the decision engine would not")

	return cmd
}
