package amqp

import (
	"errors"

	"github.com/rabbitmq/amqp091-go"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying: the delivery is rejected
// instead of requeued.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RenderDelivery is a render job together with its broker acknowledgement.
type RenderDelivery struct {
	Message  *RenderJobMessage
	delivery amqp091.Delivery
}

func NewRenderDelivery(msg *RenderJobMessage, d amqp091.Delivery) *RenderDelivery {
	return &RenderDelivery{Message: msg, delivery: d}
}

// Done acknowledges the delivery on success, rejects it for permanent
// errors and requeues it otherwise.
func (d *RenderDelivery) Done(err error) error {
	switch {
	case err == nil:
		return d.delivery.Ack(false)
	case IsPermanent(err):
		return d.delivery.Nack(false, false)
	default:
		return d.delivery.Nack(false, true)
	}
}
