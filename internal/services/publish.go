// internal/services/publish.go
package services

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/events"
)

// publishEvent never fails the caller; a lost event is logged.
func publishEvent(ctx context.Context, publisher events.Publisher, eventType, correlationID string, payload any) {
	if publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, correlationID, payload)
	if err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Error("Failed to build event")
		return
	}
	if err := publisher.Publish(ctx, env); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event_type": eventType,
			"event_id":   env.EventID,
		}).Warn("Failed to publish event")
	}
}

func productCorrelation(productID uint64) string {
	return "product:" + strconv.FormatUint(productID, 10)
}
