package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/chartrail/internal/core/domain"
)

var (
	captureEndpoint string
	captureMethod   string
	captureStatus   int
	capturePatient  string
	captureSource   string
	capturePayload  string
	captureJSON     bool
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Log a captured event",
	Long: `Appends one captured interaction to the event log and classifies it.

The payload is read from --payload (a file path, or - for stdin).
The event is always logged, even when classification fails.`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&captureEndpoint, "endpoint", "e", "", "request URL or path (required)")
	captureCmd.Flags().StringVarP(&captureMethod, "method", "m", "GET", "HTTP method")
	captureCmd.Flags().IntVar(&captureStatus, "status", 0, "HTTP response status")
	captureCmd.Flags().StringVarP(&capturePatient, "patient", "p", "", "patient ID hint")
	captureCmd.Flags().StringVar(&captureSource, "source", "cli", "capture channel")
	captureCmd.Flags().StringVar(&capturePayload, "payload", "", "payload file, or - for stdin")
	captureCmd.Flags().BoolVar(&captureJSON, "json", false, "output as JSON")
	_ = captureCmd.MarkFlagRequired("endpoint")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, _ []string) error {
	if captureService == nil {
		return errors.New("capture service not configured")
	}

	payload, err := readPayload(cmd, capturePayload)
	if err != nil {
		return err
	}

	event := domain.RawEvent{
		Endpoint:  captureEndpoint,
		Method:    captureMethod,
		PatientID: capturePatient,
		Payload:   payload,
		Source:    captureSource,
	}
	if captureStatus > 0 {
		event.Status = domain.IntPtr(captureStatus)
	}

	logged, entry, err := captureService.Capture(cmd.Context(), event)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	if captureJSON {
		return printJSON(cmd, struct {
			Event domain.RawEvent    `json:"event"`
			Entry *domain.IndexEntry `json:"entry,omitempty"`
		}{logged, entry})
	}

	cmd.Printf("Logged event %s\n", logged.ID)
	if entry == nil {
		cmd.Println("  Not indexed (run 'chartrail index run' to retry)")
		return nil
	}
	cmd.Printf("  Category:   %s\n", categoryLabel(*entry))
	cmd.Printf("  Confidence: %.2f\n", entry.Confidence)
	cmd.Printf("  Pattern:    %s\n", entry.EndpointPattern)
	return nil
}

// readPayload reads a JSON payload from a file or stdin.
// An empty path means no payload.
func readPayload(cmd *cobra.Command, path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if len(data) > 0 && !json.Valid(data) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", domain.ErrInvalidInput)
	}
	return data, nil
}

// categoryLabel renders category and subcategory.
func categoryLabel(e domain.IndexEntry) string {
	if e.Subcategory == "" {
		return e.Category.String()
	}
	return e.Category.String() + "/" + e.Subcategory
}
