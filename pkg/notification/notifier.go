package notification

// NotificationSystem identifies a delivery channel (email, SMS).
type NotificationSystem string

// NoticeType identifies a kind of notice the service sends out.
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"
	SMSSystem   NotificationSystem = "sms"

	EmailVerificationNotice NoticeType = "email_verification"
	PhoneVerificationNotice NoticeType = "phone_verification"
	PasswordResetNotice     NoticeType = "password_reset"
	EmailChangeNotice       NoticeType = "email_change"
	PhoneChangeNotice       NoticeType = "phone_change"
)

// NoticeTemplate holds the renderable content for one notice on one system.
// Subject is required; at least one of Text or Html must be set.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

type NotificationData struct {
	To      string            // Recipient identifier (email address or phone number)
	Subject string            // Optional override for the template subject
	Body    string            // Optional pre-rendered body
	Data    map[string]string // Template data (tokens, links, codes)
}

type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
