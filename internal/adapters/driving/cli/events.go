package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	eventsPatient string
	eventsLimit   int
	eventsJSON    bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the event log",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List logged events",
	Long:  `Lists the most recent logged events, oldest first.`,
	RunE:  runEventsList,
}

var eventsGetCmd = &cobra.Command{
	Use:   "get [event-id]",
	Short: "Show one logged event",
	Args:  cobra.ExactArgs(1),
	RunE:  runEventsGet,
}

func init() {
	eventsListCmd.Flags().StringVarP(&eventsPatient, "patient", "p", "", "only events for this patient")
	eventsListCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "maximum number of events")
	eventsListCmd.Flags().BoolVar(&eventsJSON, "json", false, "output as JSON")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsGetCmd)
	rootCmd.AddCommand(eventsCmd)
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	if captureService == nil {
		return errors.New("capture service not configured")
	}

	events, err := captureService.Events(cmd.Context(), eventsPatient, eventsLimit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if eventsJSON {
		return printJSON(cmd, events)
	}
	if len(events) == 0 {
		cmd.Println("No events logged.")
		return nil
	}

	for i := range events {
		e := &events[i]
		cmd.Printf("%s  %s  %-6s %s\n", e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Method, e.Endpoint)
	}
	cmd.Printf("\nTotal: %d events\n", len(events))
	return nil
}

func runEventsGet(cmd *cobra.Command, args []string) error {
	if captureService == nil {
		return errors.New("capture service not configured")
	}

	event, err := captureService.Event(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	return printJSON(cmd, event)
}
