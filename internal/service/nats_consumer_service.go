package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"answerhub-be/internal/constant"
	"answerhub-be/internal/dto"
	"answerhub-be/internal/repository/unitofwork"
	"answerhub-be/pkg/nats"
)

// natsConsumerService is the JetStream-backed counterpart of consumerService,
// used when the deployment runs a shared NATS bus instead of the in-process
// channel broker.
type natsConsumerService struct {
	subscriber *nats.Subscriber
	uowFactory unitofwork.RepositoryFactory
}

func NewNatsConsumerService(
	subscriber *nats.Subscriber,
	uowFactory unitofwork.RepositoryFactory,
) IConsumerService {
	return &natsConsumerService{
		subscriber: subscriber,
		uowFactory: uowFactory,
	}
}

func (ns *natsConsumerService) Consume(ctx context.Context) error {
	return ns.subscriber.Subscribe(constant.QueryRoutedSubject, constant.QueryRoutedDurableName, func(ctx context.Context, raw []byte) error {
		var payload dto.PublishQueryRoutedMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			// Swallow unparseable payloads, a Nak would loop forever.
			log.Printf("[ERROR] Failed to unmarshal routing event: %v", err)
			return nil
		}
		if err := persistRoutingEvent(ctx, ns.uowFactory, payload); err != nil {
			return fmt.Errorf("persist routing event: %w", err)
		}
		return nil
	})
}
