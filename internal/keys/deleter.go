package keys

import (
	"context"
	"fmt"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
)

// Deleter removes single keys and prunes the listing once the server
// confirms. Deletes are not cancellable and may run concurrently.
type Deleter struct {
	store     *Store
	client    KeysAPI
	notifier  Notifier
	telemetry Telemetry
}

func NewDeleter(store *Store, client KeysAPI, notifier Notifier, telemetry Telemetry) *Deleter {
	if telemetry == nil {
		telemetry = NopTelemetry
	}
	return &Deleter{store: store, client: client, notifier: notifier, telemetry: telemetry}
}

// DeletedMessage is the confirmation shown after a successful delete
func DeletedMessage(name connection.RedisString) string {
	return fmt.Sprintf("%q 已删除", name.String())
}

// DeleteKey deletes name. On failure the listing is left untouched and the
// error is reported to the notifier and returned.
func (d *Deleter) DeleteKey(ctx context.Context, name connection.RedisString, onSuccess func()) error {
	d.store.BeginDelete()
	defer d.store.EndDelete()

	resp, err := d.client.DeleteKeys(ctx, []connection.RedisString{name})
	if err != nil {
		d.telemetry.ObserveDelete(OutcomeFailure)
		logger.Error(err, "删除 Key 失败：key=%s", name)
		d.notifier.Error(api.ErrorMessage(err))
		return err
	}

	var affected int64
	if resp != nil {
		affected = resp.Affected
	}
	d.store.RemoveKey(name)
	d.telemetry.ObserveDelete(OutcomeSuccess)
	logger.Infof("删除 Key 成功：key=%s affected=%d", name, affected)
	d.notifier.Info(DeletedMessage(name))
	if onSuccess != nil {
		onSuccess()
	}
	return nil
}
