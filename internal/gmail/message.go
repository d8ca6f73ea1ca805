package gmail

import (
	"encoding/base64"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/logging"
)

func toEmailRecord(msg *gmail.Message, logger logging.Logger) actions.EmailRecord {
	rec := actions.EmailRecord{
		ID:      msg.Id,
		Subject: DefaultSubject,
		Sender:  DefaultSender,
	}
	if msg.Payload == nil {
		return rec
	}

	if v, ok := header(msg.Payload, "Subject"); ok {
		rec.Subject = v
	}
	if v, ok := header(msg.Payload, "From"); ok {
		rec.Sender = v
	}

	if data := bodyData(msg.Payload); data != "" {
		decoded, err := decodeBody(data)
		if err != nil {
			logger.Warn("failed to decode message body", logging.EmailID(msg.Id), logging.Err(err))
		} else {
			rec.Body = strings.TrimSpace(decoded)
		}
	}
	return rec
}

// header returns the first header with the given name. Header names are
// case-insensitive.
func header(part *gmail.MessagePart, name string) (string, bool) {
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// bodyData returns the encoded body: the payload's own data for single-part
// messages, otherwise the first text/plain part, otherwise the first
// text/html part, searched depth-first.
func bodyData(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" && len(payload.Parts) == 0 {
		return payload.Body.Data
	}
	for _, mimeType := range []string{"text/plain", "text/html"} {
		var found string
		walkParts(payload, func(part *gmail.MessagePart) {
			if found == "" && part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
				found = part.Body.Data
			}
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// decodeBody decodes base64url body data (RFC 4648), tolerating missing
// padding and falling back to standard base64.
func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			decoded, err = base64.StdEncoding.DecodeString(data)
			if err != nil {
				return "", err
			}
		}
	}
	return strings.ToValidUTF8(string(decoded), ""), nil
}
