package cloudapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/glazeops/internal/whatsapp/domain"
)

const signaturePrefix = "sha256="

// VerifySignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 of the raw body keyed by the app secret.
func VerifySignature(payload []byte, header, secret string) error {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return domain.ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Sign returns the header value VerifySignature accepts.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

type Notification struct {
	Messages []domain.InboundMessage
	Statuses []domain.StatusUpdate
}

type envelope struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string      `json:"field"`
			Value changeValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type changeValue struct {
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      *struct {
			Body string `json:"body"`
		} `json:"text"`
		Button *struct {
			Text string `json:"text"`
		} `json:"button"`
		Interactive *struct {
			ButtonReply *reply `json:"button_reply"`
			ListReply   *reply `json:"list_reply"`
		} `json:"interactive"`
		Image    *media `json:"image"`
		Document *media `json:"document"`
		Video    *media `json:"video"`
	} `json:"messages"`
	Statuses []struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
		Errors    []struct {
			Code    int    `json:"code"`
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"statuses"`
}

type media struct {
	Caption string `json:"caption"`
}

type reply struct {
	Title string `json:"title"`
}

// ParseNotification flattens a Cloud API webhook delivery into inbound
// messages and status updates. Changes for other fields are skipped.
func ParseNotification(payload []byte) (Notification, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Notification{}, domain.ErrInvalidPayload
	}
	if env.Object != "" && env.Object != "whatsapp_business_account" {
		return Notification{}, domain.ErrInvalidPayload
	}

	var out Notification
	for _, entry := range env.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			names := map[string]string{}
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				var body string
				switch {
				case m.Text != nil:
					body = m.Text.Body
				case m.Button != nil:
					body = m.Button.Text
				case m.Interactive != nil && m.Interactive.ButtonReply != nil:
					body = m.Interactive.ButtonReply.Title
				case m.Interactive != nil && m.Interactive.ListReply != nil:
					body = m.Interactive.ListReply.Title
				default:
					body = mediaBody(m.Type, m.Image, m.Document, m.Video)
				}
				out.Messages = append(out.Messages, domain.InboundMessage{
					From:        m.From,
					ProfileName: names[m.From],
					Body:        body,
					ExternalID:  m.ID,
					Timestamp:   parseUnix(m.Timestamp),
				})
			}
			for _, s := range change.Value.Statuses {
				update := domain.StatusUpdate{
					ExternalID: s.ID,
					Status:     strings.ToLower(s.Status),
					Timestamp:  parseUnix(s.Timestamp),
				}
				if len(s.Errors) > 0 {
					update.Error = s.Errors[0].Title
					if s.Errors[0].Message != "" {
						update.Error = s.Errors[0].Message
					}
				}
				out.Statuses = append(out.Statuses, update)
			}
		}
	}
	return out, nil
}

// mediaBody renders a placeholder for non-text messages, keeping the caption
// when the customer wrote one.
func mediaBody(kind string, attachments ...*media) string {
	for _, m := range attachments {
		if m != nil && m.Caption != "" {
			return "[" + kind + "] " + m.Caption
		}
	}
	return "[" + kind + "]"
}

func parseUnix(raw string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
