package mail

type FailureAlertData struct {
	LeadEmail    string
	RetryCount   int
	LastResponse string
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	Operator string
}
