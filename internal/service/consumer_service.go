package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"answerhub-be/internal/dto"
	"answerhub-be/internal/entity"
	"answerhub-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains routing analytics events off the broker and
// persists them, keeping the write out of the chat request path.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishQueryRoutedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal routing event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := persistRoutingEvent(ctx, cs.uowFactory, payload); err != nil {
		log.Printf("[ERROR] Failed to persist routing event: %v", err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}

func persistRoutingEvent(ctx context.Context, uowFactory unitofwork.RepositoryFactory, payload dto.PublishQueryRoutedMessage) error {
	uow := uowFactory.NewUnitOfWork(ctx)

	event := entity.RoutingEvent{
		Id:            uuid.New(),
		ChatSessionId: payload.ChatSessionId,
		Query:         payload.Query,
		Domain:        payload.Domain,
		CreatedAt:     time.Now(),
	}
	return uow.RoutingEventRepository().Create(ctx, &event)
}
