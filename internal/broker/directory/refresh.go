package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/netgate-io/netgate/internal/serializer"
)

// inventoryResponse is the document served by the external device inventory.
type inventoryResponse struct {
	Devices []Profile `json:"devices"`
}

// Refresh periodically replaces the whole directory from the inventory URL.
// A failed fetch keeps the last good in-memory state and the last persisted
// snapshot; it is logged, never fatal. Blocks until ctx is done.
func (d *Directory) Refresh(ctx context.Context, url string, interval time.Duration) {
	if url == "" {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := d.refreshOnce(ctx, url); err != nil {
			slog.Warn("credential refresh failed, keeping last good state", "url", url, "error", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (d *Directory) refreshOnce(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inventory replied %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var inv inventoryResponse
	if err := serializer.JSON.Unmarshal(body, &inv); err != nil {
		return fmt.Errorf("unable to parse inventory: %w", err)
	}
	if len(inv.Devices) == 0 {
		return fmt.Errorf("inventory returned no devices")
	}

	if err := d.Replace(inv.Devices); err != nil {
		return err
	}
	slog.Info("credential directory refreshed", "devices", len(inv.Devices))
	return nil
}
