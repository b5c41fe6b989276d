package queue

import (
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AlertMailer is what the consumer needs from the mail layer.
type AlertMailer interface {
	SendFailureAlert(alert FailureAlert) error
}

// AlertWorker consumes permanent-failure alerts and emails the
// operator about each one.
type AlertWorker struct {
	Channel *amqp.Channel
	Mailer  AlertMailer
}

func NewAlertWorker(ch *amqp.Channel, mailer AlertMailer) *AlertWorker {
	return &AlertWorker{Channel: ch, Mailer: mailer}
}

func (w *AlertWorker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		log.Fatalf("❌ failed to register alert consumer: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var alert FailureAlert
			if err := json.Unmarshal(d.Body, &alert); err != nil {
				log.Printf("❌ [ALERTS] malformed alert, dropping: %s", err)
				d.Nack(false, false)
				continue
			}

			if err := w.Mailer.SendFailureAlert(alert); err != nil {
				log.Printf("❌ [ALERTS] failed to mail alert for lead %s: %s", alert.LeadID, err)
				d.Nack(false, false)
				continue
			}

			log.Printf("📧 [ALERTS] operator notified about lead %s", alert.LeadID)
			d.Ack(false)
		}
	}()

	log.Printf(" [*] alert worker waiting on queue '%s'", queueName)
	<-forever
}
