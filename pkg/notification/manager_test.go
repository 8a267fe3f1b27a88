package notification

import (
	"testing"
)

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager("")
	if nm == nil {
		t.Error("NewNotificationManager returned nil")
	}
	if nm.notifiers == nil {
		t.Error("notifiers map not initialized")
	}
	if nm.notificationRegistry == nil {
		t.Error("notificationRegistry map not initialized")
	}
}

func TestRegisterNotifier(t *testing.T) {
	nm := NewNotificationManager("")
	mockNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockNotifier)
	if n, exists := nm.notifiers[EmailSystem]; !exists {
		t.Error("Notifier not registered")
	} else if n != mockNotifier {
		t.Error("Wrong notifier registered")
	}

	// Overwriting an existing notifier
	newMockNotifier := &MockNotifier{}
	nm.RegisterNotifier(EmailSystem, newMockNotifier)
	if n := nm.notifiers[EmailSystem]; n != newMockNotifier {
		t.Error("Notifier not overwritten")
	}
}

func TestRegisterNotification(t *testing.T) {
	nm := NewNotificationManager("")

	tests := []struct {
		name        string
		noticeType  NoticeType
		system      NotificationSystem
		template    NoticeTemplate
		shouldError bool
	}{
		{
			name:        "Valid registration with both Text and Html",
			noticeType:  EmailVerificationNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Verify", Text: "verify", Html: "<p>verify</p>"},
			shouldError: false,
		},
		{
			name:        "Valid registration with Text only",
			noticeType:  PhoneVerificationNotice,
			system:      SMSSystem,
			template:    NoticeTemplate{Subject: "Code", Text: "Your code is {{.Code}}"},
			shouldError: false,
		},
		{
			name:        "Empty notice type",
			noticeType:  "",
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Verify", Text: "verify"},
			shouldError: true,
		},
		{
			name:        "Empty system",
			noticeType:  EmailVerificationNotice,
			system:      "",
			template:    NoticeTemplate{Subject: "Verify", Text: "verify"},
			shouldError: true,
		},
		{
			name:        "Empty subject",
			noticeType:  EmailVerificationNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Text: "verify"},
			shouldError: true,
		},
		{
			name:        "No content",
			noticeType:  EmailVerificationNotice,
			system:      EmailSystem,
			template:    NoticeTemplate{Subject: "Verify"},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := nm.RegisterNotification(tt.noticeType, tt.system, tt.template)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tt.shouldError {
				if template, exists := nm.notificationRegistry[tt.noticeType][tt.system]; !exists {
					t.Error("Template not registered")
				} else if template.Subject != tt.template.Subject {
					t.Errorf("Wrong subject registered. Got %s, want %s", template.Subject, tt.template.Subject)
				}
			}
		})
	}
}

func TestSend(t *testing.T) {
	nm := NewNotificationManager("https://account.example.com")
	mockEmailNotifier := &MockNotifier{}

	nm.RegisterNotifier(EmailSystem, mockEmailNotifier)
	err := nm.RegisterNotification(EmailVerificationNotice, EmailSystem, NoticeTemplate{
		Subject: "Verify Your Email Address",
		Html:    "<p>{{.BaseUrl}}/verify-email?token={{.Token}}</p>",
	})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}

	err = nm.Send(EmailVerificationNotice, NotificationData{
		To:   "user@example.com",
		Data: map[string]string{"Token": "abc"},
	})
	if err != nil {
		t.Errorf("Failed to send notification: %v", err)
	}

	if len(mockEmailNotifier.SentNotifications) != 1 {
		t.Fatal("Email notification not sent")
	}
	sent := mockEmailNotifier.SentNotifications[0]
	if sent.To != "user@example.com" {
		t.Error("Email notification data mismatch")
	}
	if sent.Data["BaseUrl"] != "https://account.example.com" {
		t.Error("BaseUrl not injected into template data")
	}
	if mockEmailNotifier.SentTypes[0] != EmailVerificationNotice {
		t.Error("Wrong notice type sent")
	}
}

func TestSendErrors(t *testing.T) {
	nm := NewNotificationManager("")

	// Unregistered notice type
	err := nm.Send("unregistered", NotificationData{})
	if err == nil {
		t.Error("Expected error for unregistered notice type")
	}

	// Registered notice without a notifier for its system
	err = nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{Subject: "Reset", Text: "reset"})
	if err != nil {
		t.Fatalf("Failed to register notification: %v", err)
	}
	err = nm.Send(PasswordResetNotice, NotificationData{})
	if err == nil {
		t.Error("Expected error for missing notifier")
	} else if err.Error() != "no notifier registered for system: email" {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestDefaultTemplates(t *testing.T) {
	nm, err := NewNotificationManagerWithOptions("https://account.example.com", WithDefaultTemplates())
	if err != nil {
		t.Fatalf("Failed to build manager: %v", err)
	}

	for _, noticeType := range []NoticeType{
		EmailVerificationNotice,
		PasswordResetNotice,
		EmailChangeNotice,
		PhoneVerificationNotice,
		PhoneChangeNotice,
	} {
		if _, exists := nm.notificationRegistry[noticeType]; !exists {
			t.Errorf("Default template missing for %s", noticeType)
		}
	}
}
