package messaging

import "strings"

// Keyword is the consent action requested by an inbound message body.
type Keyword int

const (
	KeywordNone Keyword = iota
	KeywordOptOut
	KeywordOptIn
	KeywordHelp
)

func (k Keyword) String() string {
	switch k {
	case KeywordOptOut:
		return "opt_out"
	case KeywordOptIn:
		return "opt_in"
	case KeywordHelp:
		return "help"
	default:
		return "none"
	}
}

// Auto-replies sent in response to consent keywords.
const (
	OptOutReply = "You have been unsubscribed and will no longer receive messages from us. Reply START to resubscribe."
	OptInReply  = "You have been resubscribed and will receive messages again. Reply STOP to unsubscribe."
	HelpReply   = "Dispatch notifications. Reply STOP to unsubscribe or START to resubscribe. Msg & data rates may apply."
)

var (
	optOutKeywords = map[string]struct{}{
		"STOP": {}, "STOPALL": {}, "UNSUBSCRIBE": {}, "CANCEL": {}, "END": {}, "QUIT": {},
	}
	helpKeywords = map[string]struct{}{
		"HELP": {}, "INFO": {},
	}
)

const optInKeyword = "START"

// ClassifyKeyword matches the whole trimmed, upper-cased body against the
// consent keyword sets. "stop please" is not a keyword.
func ClassifyKeyword(body string) Keyword {
	kw := strings.ToUpper(strings.TrimSpace(body))

	if _, ok := optOutKeywords[kw]; ok {
		return KeywordOptOut
	}
	if kw == optInKeyword {
		return KeywordOptIn
	}
	if _, ok := helpKeywords[kw]; ok {
		return KeywordHelp
	}
	return KeywordNone
}

// Reply returns the auto-reply text for k, or "" when none is sent.
func (k Keyword) Reply() string {
	switch k {
	case KeywordOptOut:
		return OptOutReply
	case KeywordOptIn:
		return OptInReply
	case KeywordHelp:
		return HelpReply
	default:
		return ""
	}
}
