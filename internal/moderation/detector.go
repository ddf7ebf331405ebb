// Package moderation detects attempts to move a conversation off the
// marketplace and keeps the admin moderation log.
package moderation

import "regexp"

// Rule is one named off-platform contact pattern. Text matching Ignore is
// blanked out before Pattern is tried.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Ignore  *regexp.Regexp
}

// dateLike matches numeric calendar dates, which read as digit runs.
var dateLike = regexp.MustCompile(`\b(?:\d{4}[-/.]\d{1,2}[-/.]\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{4})\b`)

// DefaultRules are checked in order; the first match names the reason.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "email", Pattern: regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)},
		{Name: "phone", Pattern: regexp.MustCompile(`\+?\d(?:[\s\-.()]*\d){6,}`), Ignore: dateLike},
		{Name: "url", Pattern: regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)},
		{Name: "social_handle", Pattern: regexp.MustCompile(`(?i)(?:^|\s)@[a-z0-9_.]{3,}`)},
		{Name: "external_app", Pattern: regexp.MustCompile(`(?i)\b(?:whats\s?app|telegram|signal|skype|discord|zoom|google\s+meet|hangouts|(?:ms|microsoft)\s+teams|wechat|viber|instagram|facebook|linkedin|twitter|tiktok|snapchat|venmo|cash\s?app|paypal\.me)\b`)},
		{Name: "contact_request", Pattern: regexp.MustCompile(`(?i)\b(?:call|text|email|dm|message|contact|reach)\s+me\s+(?:at|on|via|outside)\b`)},
	}
}

// Detector is a plain predicate over message text: no scoring and no context.
type Detector struct {
	rules []Rule
}

func NewDetector(rules []Rule) *Detector {
	return &Detector{rules: rules}
}

// Check reports whether text matches any rule and which one matched first.
func (d *Detector) Check(text string) (bool, string) {
	for _, r := range d.rules {
		subject := text
		if r.Ignore != nil {
			subject = r.Ignore.ReplaceAllString(text, " ")
		}
		if r.Pattern.MatchString(subject) {
			return true, r.Name
		}
	}
	return false, ""
}
