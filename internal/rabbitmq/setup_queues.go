package rabbitmq

import "github.com/glift-app/glift-billing/internal/models"

// QueueConfig описывает очередь и её ключ маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// NotificationQueues возвращает очереди уведомлений биллинга.
func NotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "billing.trial_will_end", RoutingKey: models.NotificationTrialWillEnd},
		{QueueName: "billing.payment_failed", RoutingKey: models.NotificationPaymentFailed},
	}
}
