package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// PostfixFilter is a Postfix content filter. Mail arrives over SMTP, is
// stamped with the verdict and is reinjected into Postfix.
type PostfixFilter struct {
	analyzer   Analyzer
	logger     *zap.Logger
	opts       Options
	server     *smtp.Server
	listener   net.Listener
	reinject   string
	reinjectOn bool
}

// NewPostfixFilter creates a new Postfix content filter. reinjectAddr is the
// host:port Postfix accepts filtered mail on; an empty address disables
// reinjection.
func NewPostfixFilter(analyzer Analyzer, logger *zap.Logger, opts Options, reinjectAddr string) *PostfixFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Headers == (HeaderNames{}) {
		opts.Headers = DefaultHeaderNames()
	}
	if opts.SubjectPrefix == "" && opts.ModifySubject {
		opts.SubjectPrefix = "[**SPAM**] "
	}

	return &PostfixFilter{
		analyzer:   analyzer,
		logger:     logger,
		opts:       opts,
		reinject:   reinjectAddr,
		reinjectOn: reinjectAddr != "",
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.opts.ListenAddress
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	ln, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}
	f.listener = ln

	f.logger.Info("Postfix filter starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the address the filter listens on once started
func (f *PostfixFilter) Addr() string {
	if f.listener == nil {
		return f.opts.ListenAddress
	}
	return f.listener.Addr().String()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an email without touching the SMTP path
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error) {
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// rewrite returns raw with the verdict headers prepended and the subject
// tagged when configured. The body is kept byte for byte.
func (f *PostfixFilter) rewrite(raw []byte, header mail.Header, v verdict) []byte {
	var out bytes.Buffer
	for _, h := range v.headers(f.opts.Headers) {
		fmt.Fprintf(&out, "%s: %s\r\n", h.name, h.value)
	}

	offset := bodyOffset(raw)
	subject := header.Get("Subject")
	if decoded, err := decodeEncodedHeader(subject); err == nil {
		subject = decoded
	}
	tagged, changed := v.taggedSubject(subject, f.opts)

	if !changed {
		out.Write(raw)
		return out.Bytes()
	}

	fmt.Fprintf(&out, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", tagged))
	for key, values := range header {
		if strings.EqualFold(key, "Subject") {
			continue
		}
		for _, value := range values {
			fmt.Fprintf(&out, "%s: %s\r\n", key, value)
		}
	}
	out.WriteString("\r\n")
	out.Write(raw[offset:])
	return out.Bytes()
}

// sendToPostfix reinjects the processed email into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.reinject, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message was already accepted
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

type smtpBackend struct {
	filter *PostfixFilter
}

func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter
	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.Error(err))
		return &smtp.SMTPError{
			Code:         554,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}

	email, err := ParseMessage(raw, s.sender, s.recipients)
	if err != nil {
		f.logger.Error("Failed to extract text content", zap.Error(err))
		return err
	}
	domain := senderDomain(email.From)

	v := analyze(context.Background(), f.analyzer, email, f.opts.Timeout)
	if v.err != nil {
		f.logger.Error("Failed to analyze email",
			zap.Error(v.err),
			zap.String("sender", email.From),
			zap.String("sender_domain", domain))
	}

	if v.reject(f.opts) {
		f.logger.Info("Rejecting spam email",
			zap.String("from", email.From),
			zap.String("sender_domain", domain),
			zap.Float64("score", v.result.Score),
			zap.String("reason", v.result.Explanation),
			zap.String("model", v.result.ModelUsed))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f)", v.result.Score),
		}
	}

	out := f.rewrite(raw, msg.Header, v)

	if f.reinjectOn {
		if err := f.sendToPostfix(s.sender, s.recipients, out); err != nil {
			f.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", email.From))
			return &smtp.SMTPError{
				Code:         451,
				EnhancedCode: smtp.EnhancedCode{4, 3, 0},
				Message:      "Temporary failure reinjecting message",
			}
		}
	} else {
		f.logger.Warn("Postfix reinjection disabled, this is likely a misconfiguration")
	}

	f.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("sender_domain", domain),
		zap.Bool("is_spam", v.result.IsSpam),
		zap.Float64("score", v.result.Score),
		zap.String("model", v.result.ModelUsed))
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
