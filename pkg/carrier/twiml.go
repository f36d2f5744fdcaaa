package carrier

import (
	"encoding/xml"
	"fmt"
)

// MessagingResponse is the TwiML document returned to inbound callbacks.
// With no messages it renders an empty <Response></Response>, which
// acknowledges the callback without replying.
type MessagingResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// NewMessagingResponse creates a response that replies with each text.
func NewMessagingResponse(texts ...string) MessagingResponse {
	out := MessagingResponse{}
	for _, t := range texts {
		if t != "" {
			out.Messages = append(out.Messages, t)
		}
	}
	return out
}

// Marshal renders the document with an XML declaration.
func (m MessagingResponse) Marshal() ([]byte, error) {
	body, err := xml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal twiml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
