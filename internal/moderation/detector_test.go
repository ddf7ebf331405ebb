package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_Check(t *testing.T) {
	d := NewDetector(DefaultRules())

	tests := []struct {
		text string
		want bool
		rule string
	}{
		{"reach me at alice@example.com", true, "email"},
		{"Great, thanks!", false, ""},
		{"call 555-123-4567 tonight", true, "phone"},
		{"my number is +44 20 7946 0958", true, "phone"},
		{"see www.myvoicereel.com for more", true, "url"},
		{"portfolio at https://example.org/reel", true, "url"},
		{"follow me @voice_by_sam", true, "social_handle"},
		{"let's hop on zoom tomorrow", true, "external_app"},
		{"ping me on WhatsApp", true, "external_app"},
		{"my portfolio is on linkedin", true, "external_app"},
		{"text me at your convenience", true, "contact_request"},
		{"The script is 350 words, budget $200.", false, ""},
		{"Can you deliver by Friday at 5pm?", false, ""},
		{"Can we start recording on 2026-05-01?", false, ""},
		{"Sessions on 01/05/2026 and 2026.05.08 work", false, ""},
		{"booked 2026-05-01, call 555-123-4567", true, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, rule := d.Check(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rule, rule)
		})
	}
}
