package filter

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/d--j/go-milter"
	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

const maxMilterBody = 30 * 1024 * 1024

// MilterFilter is a milter front-end for Postfix or Sendmail
type MilterFilter struct {
	analyzer Analyzer
	logger   *zap.Logger
	opts     Options
	server   *milter.Server
	listener net.Listener
	closing  atomic.Bool
}

// NewMilterFilter creates a new Milter filter
func NewMilterFilter(analyzer Analyzer, logger *zap.Logger, opts Options) *MilterFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Headers == (HeaderNames{}) {
		opts.Headers = DefaultHeaderNames()
	}
	return &MilterFilter{
		analyzer: analyzer,
		logger:   logger,
		opts:     opts,
	}
}

// Start starts the Milter filter service
func (f *MilterFilter) Start() error {
	f.server = milter.NewServer(
		milter.WithMilter(func() milter.Milter {
			return &milterSession{filter: f}
		}),
		milter.WithAction(milter.OptAddHeader),
		milter.WithReadTimeout(30*time.Second),
		milter.WithWriteTimeout(30*time.Second),
	)

	ln, err := net.Listen("tcp", f.opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.opts.ListenAddress, err)
	}
	f.listener = ln

	f.logger.Info("Milter filter started", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !f.closing.Load() {
			f.logger.Error("Milter server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Milter filter service
func (f *MilterFilter) Stop() error {
	if f.server != nil {
		f.closing.Store(true)
		return f.server.Close()
	}
	return nil
}

// ProcessEmail classifies an email without touching the milter path
func (f *MilterFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.PredictionResult, error) {
	return f.analyzer.AnalyzeEmail(ctx, email)
}

// milterSession collects one message at a time for a connection
type milterSession struct {
	milter.NoOpMilter
	filter *MilterFilter

	from      string
	rcpts     []string
	header    bytes.Buffer
	body      bytes.Buffer
	truncated bool
}

func (s *milterSession) reset() {
	s.from = ""
	s.rcpts = nil
	s.header.Reset()
	s.body.Reset()
	s.truncated = false
}

func (s *milterSession) MailFrom(from string, _ string, _ milter.Modifier) (*milter.Response, error) {
	s.reset()
	s.from = extractEmailAddress(from)
	return milter.RespContinue, nil
}

func (s *milterSession) RcptTo(rcptTo string, _ string, _ milter.Modifier) (*milter.Response, error) {
	s.rcpts = append(s.rcpts, extractEmailAddress(rcptTo))
	return milter.RespContinue, nil
}

func (s *milterSession) Header(name string, value string, _ milter.Modifier) (*milter.Response, error) {
	fmt.Fprintf(&s.header, "%s: %s\r\n", name, value)
	return milter.RespContinue, nil
}

func (s *milterSession) BodyChunk(chunk []byte, _ milter.Modifier) (*milter.Response, error) {
	if s.body.Len()+len(chunk) > maxMilterBody {
		s.truncated = true
		return milter.RespContinue, nil
	}
	s.body.Write(chunk)
	return milter.RespContinue, nil
}

// message reassembles the raw message seen so far
func (s *milterSession) message() []byte {
	raw := make([]byte, 0, s.header.Len()+2+s.body.Len())
	raw = append(raw, s.header.Bytes()...)
	raw = append(raw, '\r', '\n')
	return append(raw, s.body.Bytes()...)
}

// decide analyses the collected message
func (s *milterSession) decide() (*core.Email, verdict) {
	f := s.filter
	email, err := ParseMessage(s.message(), s.from, s.rcpts)
	if err != nil {
		f.logger.Warn("Failed to parse message, analysing raw body", zap.Error(err))
		email = &core.Email{From: s.from, To: s.rcpts, Body: s.body.String()}
	}
	if s.truncated {
		f.logger.Warn("Message body truncated for analysis", zap.String("sender", email.From))
	}
	return email, analyze(context.Background(), f.analyzer, email, f.opts.Timeout)
}

func (s *milterSession) EndOfMessage(m milter.Modifier) (*milter.Response, error) {
	f := s.filter
	email, v := s.decide()
	defer s.reset()
	domain := senderDomain(email.From)

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
		return milter.RejectWithCodeAndReason(550,
			fmt.Sprintf("5.7.1 Rejected as spam (score: %.2f)", v.result.Score))
	}

	for _, h := range v.headers(f.opts.Headers) {
		if err := m.AddHeader(h.name, h.value); err != nil {
			return milter.RespTempFail, fmt.Errorf("failed to add %s header: %w", h.name, err)
		}
	}

	f.logger.Info("Processed email",
		zap.String("from", email.From),
		zap.String("sender_domain", domain),
		zap.Bool("is_spam", v.result.IsSpam),
		zap.Float64("score", v.result.Score),
		zap.String("model", v.result.ModelUsed))
	return milter.RespAccept, nil
}

func (s *milterSession) Abort(_ milter.Modifier) error {
	s.reset()
	return nil
}
