package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/validation"
)

func (c *Cli) runDelete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: parcelsync delete <parcel-id>")
	}
	parcelID := args[0]

	if err := validation.ValidateParcelID(parcelID); err != nil {
		return fmt.Errorf("invalid parcel id: %w", err)
	}

	if err := c.tracker.RecordDelete(ctx, parcelID); err != nil {
		if errors.Is(err, storage.ErrParcelNotFound) {
			return fmt.Errorf("parcel %s not found", parcelID)
		}
		return err
	}

	fmt.Printf("Deleted parcel %s\n", parcelID)
	fmt.Println("The deletion will be uploaded on the next sync.")

	return nil
}
