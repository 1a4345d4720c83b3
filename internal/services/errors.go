package services

import (
	"errors"

	"bizledger/internal/core"
)

// ErrRenderQueueDisabled is returned by EnqueueRender when no broker is
// configured.
var ErrRenderQueueDisabled = errors.New("render queue is not configured")

func asRecordError(err error) (*core.RecordValidationError, bool) {
	var rve *core.RecordValidationError
	if errors.As(err, &rve) {
		return rve, true
	}
	return nil, false
}

// IsPermanent reports whether retrying the operation that returned err can
// never succeed: unknown records, invalid records or unusable templates.
func IsPermanent(err error) bool {
	var tce *core.TemplateConfigError
	_, invalid := asRecordError(err)
	return invalid || errors.Is(err, core.ErrNotFound) || errors.As(err, &tce)
}
