//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"flat_watcher/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishNew() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-created",
		RoutingKey: "test-routing-key-created",
		QueueName:  "test-queue-created",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	imageURL := "https://reality.bazos.sk/img/1/123.jpg"
	listing := &domain.Listing{
		ID:            1,
		Title:         "Prenájom 2-izbový byt",
		Price:         450,
		District:      "Ružinov",
		Address:       "Ružinov, Bratislava",
		Rooms:         "2-izbový",
		Size:          "60",
		Description:   "Pekný byt od majiteľa",
		URL:           "https://reality.bazos.sk/inzerat/123/",
		Source:        "bazos.sk",
		AvailableFrom: "Ihneď",
		ImageURL:      &imageURL,
		ScrapedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}

	err = pub.PublishNew(s.ctx, listing)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ListingMessage
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal("created", received.Action)
	s.Equal("https://reality.bazos.sk/inzerat/123/", received.Listing.URL)
	s.Equal("Prenájom 2-izbový byt", received.Listing.Title)
	s.Equal(450, received.Listing.Price)
	s.Require().NotNil(received.Listing.ImageURL)
	s.Equal(imageURL, *received.Listing.ImageURL)
	s.False(received.Timestamp.IsZero())
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
