package rate

import (
	"context"
	"fxrelay/internal/adapters"
	"fxrelay/internal/domain"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRateSource struct{ mock.Mock }

func (m *MockRateSource) FetchRates(ctx context.Context) (domain.RateSnapshot, error) {
	args := m.Called(ctx)
	rates, _ := args.Get(0).(domain.RateSnapshot)
	return rates, args.Error(1)
}

type MockDialer struct{ mock.Mock }

func (m *MockDialer) Dial(ctx context.Context, url string) (adapters.Connection, error) {
	args := m.Called(ctx, url)
	conn, _ := args.Get(0).(adapters.Connection)
	return conn, args.Error(1)
}

type MockConnection struct{ mock.Mock }

func (m *MockConnection) Channel() (adapters.Channel, error) {
	args := m.Called()
	ch, _ := args.Get(0).(adapters.Channel)
	return ch, args.Error(1)
}

func (m *MockConnection) NotifyClose() <-chan error {
	args := m.Called()
	ch, _ := args.Get(0).(chan error)
	return ch
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

type MockChannel struct{ mock.Mock }

func (m *MockChannel) DeclareQueue(name string) error {
	return m.Called(name).Error(0)
}

func (m *MockChannel) Publish(ctx context.Context, queue string, msg domain.Message) (bool, error) {
	args := m.Called(ctx, queue, msg)
	return args.Bool(0), args.Error(1)
}

func (m *MockChannel) Get(queue string) (*domain.Delivery, error) {
	args := m.Called(queue)
	d, _ := args.Get(0).(*domain.Delivery)
	return d, args.Error(1)
}

func (m *MockChannel) Consume(queue, consumer string) (<-chan domain.Delivery, error) {
	args := m.Called(queue, consumer)
	ch, _ := args.Get(0).(chan domain.Delivery)
	return ch, args.Error(1)
}

func (m *MockChannel) Ack(tag uint64) error {
	return m.Called(tag).Error(0)
}

func (m *MockChannel) Reject(tag uint64, requeue bool) error {
	return m.Called(tag, requeue).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

type MockProcessedRatesRepository struct{ mock.Mock }

func (m *MockProcessedRatesRepository) Save(ctx context.Context, processed domain.ProcessedRates) error {
	return m.Called(ctx, processed).Error(0)
}

func (m *MockProcessedRatesRepository) Latest(ctx context.Context) (domain.ProcessedRates, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(domain.ProcessedRates)
	return p, args.Error(1)
}

type MockDeliveryCache struct{ mock.Mock }

func (m *MockDeliveryCache) Seen(messageID string) bool {
	return m.Called(messageID).Bool(0)
}

func (m *MockDeliveryCache) Remember(messageID string, ttl time.Duration) {
	m.Called(messageID, ttl)
}

type MockRatesLog struct{ mock.Mock }

func (m *MockRatesLog) Append(line string) error {
	return m.Called(line).Error(0)
}
