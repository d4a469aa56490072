package filter

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/ml-spam-filter/internal/core"
)

var wordDecoder = &mime.WordDecoder{}

// decodeEncodedHeader decodes RFC 2047 encoded words
func decodeEncodedHeader(value string) (string, error) {
	return wordDecoder.DecodeHeader(value)
}

// decodePart undoes the transfer encoding of a leaf part
func decodePart(r io.Reader, encoding string) io.Reader {
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		return quotedprintable.NewReader(r)
	}
	return r
}

// extractText returns the text/plain content of a message body. Nested
// multiparts are walked; other parts are skipped. A body that is not
// multipart is returned whole.
func extractText(header mail.Header, body io.Reader) (string, error) {
	contentType := header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		data, err := io.ReadAll(decodePart(body, header.Get("Content-Transfer-Encoding")))
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	var text bytes.Buffer
	if err := walkMultipart(body, params["boundary"], &text); err != nil && text.Len() == 0 {
		return "", err
	}
	if text.Len() == 0 {
		return "", nil
	}
	return text.String(), nil
}

func walkMultipart(body io.Reader, boundary string, out *bytes.Buffer) error {
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read MIME part: %w", err)
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			// parts without a content type default to text/plain
			mediaType = "text/plain"
		}
		switch {
		case strings.HasPrefix(mediaType, "multipart/") && params["boundary"] != "":
			if err := walkMultipart(part, params["boundary"], out); err != nil {
				return err
			}
		case mediaType == "text/plain":
			// multipart.Part already decodes quoted-printable
			data, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			out.Write(data)
			out.WriteString("\n")
		}
	}
}

// ParseMessage parses a raw RFC 5322 message into an Email. The envelope
// sender and recipients win over the From and To headers when given.
func ParseMessage(raw []byte, envelopeFrom string, envelopeTo []string) (*core.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	body, err := extractText(msg.Header, msg.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text content: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}

	email := &core.Email{
		From:    envelopeFrom,
		To:      envelopeTo,
		Subject: subject,
		Body:    body,
		Headers: make(map[string][]string, len(msg.Header)),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}
	if email.From == "" {
		email.From = extractEmailAddress(msg.Header.Get("From"))
	}
	if len(email.To) == 0 {
		if addrs, err := msg.Header.AddressList("To"); err == nil {
			for _, a := range addrs {
				email.To = append(email.To, a.Address)
			}
		}
	}
	return email, nil
}

// extractEmailAddress returns the bare address of a From style header
func extractEmailAddress(s string) string {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	start := strings.LastIndex(s, "<")
	end := strings.LastIndex(s, ">")
	if start >= 0 && end > start {
		return s[start+1 : end]
	}
	return strings.TrimSpace(s)
}

// bodyOffset returns where the body of raw starts, or len(raw) if there is
// no header terminator
func bodyOffset(raw []byte) int {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return i + 4
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return i + 2
	}
	return len(raw)
}
