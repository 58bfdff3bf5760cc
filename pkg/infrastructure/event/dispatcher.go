// Package event provides the logrus-backed event dispatcher. Domain events
// land in the structured log; nothing downstream consumes them yet.
package event

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"kiosk/pkg/domain/service"
)

type LoggingDispatcher struct{}

func NewLoggingDispatcher() *LoggingDispatcher {
	return &LoggingDispatcher{}
}

func (d *LoggingDispatcher) Dispatch(event service.Event) error {
	log.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": fmt.Sprintf("%+v", event),
	}).Info("domain event")
	return nil
}

var _ service.EventDispatcher = (*LoggingDispatcher)(nil)
