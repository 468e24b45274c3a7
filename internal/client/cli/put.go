package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ozarkdata/parcelsync/internal/validation"
)

func (c *Cli) runPut(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: parcelsync put <parcel-id> [json-payload]")
	}
	parcelID := args[0]

	if err := validation.ValidateParcelID(parcelID); err != nil {
		return fmt.Errorf("invalid parcel id: %w", err)
	}

	var raw string
	if len(args) >= 2 {
		raw = args[1]
	} else {
		var err error
		raw, err = readInput("Payload (JSON): ")
		if err != nil {
			return fmt.Errorf("failed to read payload: %w", err)
		}
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("payload must be a JSON object: %w", err)
	}

	parcel, err := c.tracker.RecordUpsert(ctx, parcelID, payload)
	if err != nil {
		return err
	}

	fmt.Printf("Saved parcel %s (updated %s)\n", parcel.ID, parcel.UpdatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("The change will be uploaded on the next sync.")

	return nil
}
