package client

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

// NewEventsCommand constructs the `events` command group.
func NewEventsCommand(baseURL BaseURLFunc) *cobra.Command {
	eventsCmd := &cobra.Command{Use: "events", Short: "Event stream operations"}
	eventsCmd.AddCommand(newEventsTailCommand(baseURL))
	return eventsCmd
}

// newEventsTailCommand constructs the `events tail` subcommand. It attaches
// to the server's SSE stream and prints one line per event; only events
// appended after the connection opens are shown.
func newEventsTailCommand(baseURL BaseURLFunc) *cobra.Command {
	tailCmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail live events (no replay of past events)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, _ := cmd.Flags().GetStringSlice("project")

			query := url.Values{}
			for _, slug := range projects {
				query.Add("project", slug)
			}
			endpoint := baseURL() + "/api/v1/events"
			if len(query) > 0 {
				endpoint += "?" + query.Encode()
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, endpoint, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "text/event-stream")
			setAuthHeader(req)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return apiError(resp)
			}

			return printSSE(resp, cmd.OutOrStdout())
		},
	}
	tailCmd.Flags().StringSlice("project", nil, "Project slug filter (repeatable)")
	return tailCmd
}

// printSSE reads an SSE stream and prints "event<TAB>data" per frame,
// skipping keep-alive comments.
func printSSE(resp *http.Response, out interface{ Write([]byte) (int, error) }) error {
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data != "" {
				fmt.Fprintf(out, "%s\t%s\n", event, data)
			}
			event, data = "", ""
		case strings.HasPrefix(line, ":"):
			// keep-alive comment
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	return scanner.Err()
}
