package notify

import "time"

const EventTypeEmail = "notification.email"

// EmailMessage is the payload handed to the mail relay over Kafka or AMQP.
type EmailMessage struct {
	Notification
	HTML      string    `json:"html"`
	CreatedAt time.Time `json:"created_at"`
}

func newEmailMessage(n Notification) (EmailMessage, error) {
	html, err := RenderHTML(n)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		Notification: n,
		HTML:         html,
		CreatedAt:    time.Now().UTC(),
	}, nil
}
