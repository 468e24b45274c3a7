package cli

import (
	"context"
	"encoding/json"
	"fmt"
)

func (c *Cli) runList(ctx context.Context) error {
	parcels, err := c.store.ListParcels(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list parcels: %w", err)
	}

	if len(parcels) == 0 {
		fmt.Println("No parcels stored locally.")
		fmt.Println("Run 'parcelsync sync' to download your parcel data.")
		return nil
	}

	fmt.Printf("=== Parcels (%d) ===\n", len(parcels))
	fmt.Println()

	for _, p := range parcels {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			payload = []byte("<unreadable>")
		}
		marker := ""
		if p.PendingVerification {
			marker = " [pending verification]"
		}
		fmt.Printf("%s%s\n", p.ID, marker)
		fmt.Printf("  updated: %s by %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"), p.UpdatedBy)
		fmt.Printf("  payload: %s\n", payload)
		fmt.Println()
	}

	return nil
}
