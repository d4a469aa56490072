package filter

import (
	"bytes"
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mikey/ml-spam-filter/internal/core"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	result *core.PredictionResult
	err    error
	seen   []*core.Email
}

func (f *fakeAnalyzer) AnalyzeEmail(_ context.Context, email *core.Email) (*core.PredictionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, email)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func spamResult() *core.PredictionResult {
	return &core.PredictionResult{
		IsSpam:      true,
		Score:       0.91,
		Explanation: "Ensemble score 0.91 (threshold 0.50)",
		ModelUsed:   "ensemble",
	}
}

const plainMessage = "From: Alice <alice@example.com>\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Win a prize\r\n" +
	"\r\n" +
	"Click here now\r\n"

const multipartMessage = "From: alice@example.com\r\n" +
	"Subject: =?utf-8?q?Caf=C3=A9_offer?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"Free caf=C3=A9\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html\r\n" +
	"\r\n" +
	"<p>html</p>\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"\r\n" +
	"binary\r\n" +
	"--outer--\r\n"

func TestParseMessage(t *testing.T) {
	email, err := ParseMessage([]byte(plainMessage), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email.From)
	assert.Equal(t, []string{"bob@example.org"}, email.To)
	assert.Equal(t, "Win a prize", email.Subject)
	assert.Equal(t, "Click here now\r\n", email.Body)

	email, err = ParseMessage([]byte(plainMessage), "bounce@example.net", []string{"x@example.org"})
	require.NoError(t, err)
	assert.Equal(t, "bounce@example.net", email.From)
	assert.Equal(t, []string{"x@example.org"}, email.To)
}

func TestParseMessageMultipart(t *testing.T) {
	email, err := ParseMessage([]byte(multipartMessage), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Café offer", email.Subject)
	assert.Contains(t, email.Body, "Free café")
	assert.NotContains(t, email.Body, "html")
	assert.NotContains(t, email.Body, "binary")
}

func TestParseMessageRejectsGarbage(t *testing.T) {
	_, err := ParseMessage([]byte("no headers here"), "", nil)
	assert.Error(t, err)
}

func TestVerdict(t *testing.T) {
	opts := Options{BlockSpam: true, ModifySubject: true, SubjectPrefix: "[SPAM] "}
	names := DefaultHeaderNames()

	v := verdict{result: spamResult()}
	assert.True(t, v.reject(opts))
	assert.Equal(t, []header{
		{"X-Spam-Status", "true"},
		{"X-Spam-Score", "0.9100"},
		{"X-Spam-Reason", "Ensemble score 0.91 (threshold 0.50)"},
	}, v.headers(names))

	subject, changed := v.taggedSubject("Hello", opts)
	assert.True(t, changed)
	assert.Equal(t, "[SPAM] Hello", subject)
	_, changed = v.taggedSubject("[SPAM] Hello", opts)
	assert.False(t, changed)

	// analysis errors never reject
	failed := analyze(context.Background(), &fakeAnalyzer{err: core.ErrNotReady}, &core.Email{}, time.Second)
	assert.False(t, failed.reject(opts))
	hs := failed.headers(names)
	require.Len(t, hs, 4)
	assert.Equal(t, "false", hs[0].value)
	assert.Equal(t, analysisErrorHeader, hs[3].name)
}

func TestSanitizeHeaderValue(t *testing.T) {
	assert.Equal(t, "a b c", sanitizeHeaderValue("a\r\n b\tc "))
}

func TestCliFilter(t *testing.T) {
	var out bytes.Buffer
	analyzer := &fakeAnalyzer{result: &core.PredictionResult{
		IsSpam:           true,
		Score:            0.75,
		DetectedPatterns: []string{"Money symbols"},
		ModelPredictions: map[string]float64{"svm": 0.7, "naive_bayes": 0.8},
		ModelUsed:        "ensemble",
	}}
	f := NewCliFilter(analyzer, zaptest.NewLogger(t), &out, true)
	require.NoError(t, f.Start())
	defer f.Stop()

	result, err := f.ProcessEmail(context.Background(), &core.Email{From: "a@b.c", Subject: "s", Body: "body"})
	require.NoError(t, err)
	assert.True(t, result.IsSpam)

	text := out.String()
	assert.Contains(t, text, "Is spam: true")
	assert.Contains(t, text, "Spam score: 0.7500")
	assert.Contains(t, text, "Detected patterns: Money symbols")
	assert.Less(t, strings.Index(text, "naive_bayes"), strings.Index(text, "svm"))
}

// sink is a downstream SMTP server standing in for Postfix reinjection
type sink struct {
	mu   sync.Mutex
	msgs [][]byte
	got  chan struct{}
}

func (s *sink) NewSession(_ *smtp.Conn) (smtp.Session, error) { return &sinkSession{sink: s}, nil }

type sinkSession struct{ sink *sink }

func (s *sinkSession) Reset()                               {}
func (s *sinkSession) Logout() error                        { return nil }
func (s *sinkSession) Mail(string, *smtp.MailOptions) error { return nil }
func (s *sinkSession) Rcpt(string, *smtp.RcptOptions) error { return nil }
func (s *sinkSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.sink.mu.Lock()
	s.sink.msgs = append(s.sink.msgs, data)
	s.sink.mu.Unlock()
	s.sink.got <- struct{}{}
	return nil
}

// received returns the nth reinjected message with LF line endings
func (s *sink) received(t *testing.T, n int) string {
	t.Helper()
	for {
		s.mu.Lock()
		if len(s.msgs) > n {
			msg := s.msgs[n]
			s.mu.Unlock()
			return strings.ReplaceAll(string(msg), "\r\n", "\n")
		}
		s.mu.Unlock()
		select {
		case <-s.got:
		case <-time.After(5 * time.Second):
			t.Fatal("message was not reinjected")
		}
	}
}

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func startSink(t *testing.T) (*sink, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &sink{got: make(chan struct{}, 4)}
	srv := smtp.NewServer(s)
	srv.Domain = "localhost"
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return s, ln.Addr().String()
}

func send(t *testing.T, addr, from, to, msg string) error {
	t.Helper()
	c, err := smtp.Dial(addr)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Hello("localhost"))
	require.NoError(t, c.Mail(from, nil))
	require.NoError(t, c.Rcpt(to, nil))
	wc, err := c.Data()
	require.NoError(t, err)
	_, err = wc.Write([]byte(msg))
	require.NoError(t, err)
	return wc.Close()
}

func TestPostfixFilterStampsAndReinjects(t *testing.T) {
	downstream, downstreamAddr := startSink(t)
	analyzer := &fakeAnalyzer{result: spamResult()}

	f := NewPostfixFilter(analyzer, zaptest.NewLogger(t), Options{
		ListenAddress: "127.0.0.1:0",
		ModifySubject: true,
	}, downstreamAddr)
	require.NoError(t, f.Start())
	defer f.Stop()

	require.NoError(t, send(t, f.Addr(), "alice@example.com", "bob@example.org", plainMessage))

	msg := downstream.received(t, 0)
	assert.True(t, strings.HasPrefix(msg, "X-Spam-Status: true\n"), msg)
	assert.Contains(t, msg, "X-Spam-Score: 0.9100\n")
	assert.Contains(t, msg, "Subject: [**SPAM**] Win a prize\n")
	assert.NotContains(t, msg, "Subject: Win a prize")
	assert.True(t, strings.HasSuffix(msg, "\n\nClick here now\n"), msg)

	require.Len(t, analyzer.seen, 1)
	assert.Equal(t, "alice@example.com", analyzer.seen[0].From)
	assert.Equal(t, "Win a prize", analyzer.seen[0].Subject)
}

func TestPostfixFilterBlocksSpam(t *testing.T) {
	downstream, downstreamAddr := startSink(t)
	f := NewPostfixFilter(&fakeAnalyzer{result: spamResult()}, zaptest.NewLogger(t), Options{
		ListenAddress: "127.0.0.1:0",
		BlockSpam:     true,
	}, downstreamAddr)
	require.NoError(t, f.Start())
	defer f.Stop()

	err := send(t, f.Addr(), "alice@example.com", "bob@example.org", plainMessage)
	var smtpErr *smtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 550, smtpErr.Code)
	assert.Zero(t, downstream.count())
}

func TestPostfixFilterPassesMailOnAnalysisError(t *testing.T) {
	downstream, downstreamAddr := startSink(t)
	f := NewPostfixFilter(&fakeAnalyzer{err: core.ErrNotReady}, zaptest.NewLogger(t), Options{
		ListenAddress: "127.0.0.1:0",
		BlockSpam:     true,
	}, downstreamAddr)
	require.NoError(t, f.Start())
	defer f.Stop()

	require.NoError(t, send(t, f.Addr(), "alice@example.com", "bob@example.org", plainMessage))
	msg := downstream.received(t, 0)
	assert.Contains(t, msg, "X-Spam-Status: false\n")
	assert.Contains(t, msg, analysisErrorHeader+": models are not loaded\n")
}

func TestMilterSessionDecide(t *testing.T) {
	analyzer := &fakeAnalyzer{result: spamResult()}
	f := NewMilterFilter(analyzer, zaptest.NewLogger(t), Options{})
	s := &milterSession{filter: f}

	_, err := s.MailFrom("<alice@example.com>", "", nil)
	require.NoError(t, err)
	_, err = s.RcptTo("<bob@example.org>", "", nil)
	require.NoError(t, err)
	_, err = s.Header("Subject", "Win a prize", nil)
	require.NoError(t, err)
	_, err = s.BodyChunk([]byte("Click here now\r\n"), nil)
	require.NoError(t, err)

	email, v := s.decide()
	require.NoError(t, v.err)
	assert.Equal(t, "alice@example.com", email.From)
	assert.Equal(t, []string{"bob@example.org"}, email.To)
	assert.Equal(t, "Win a prize", email.Subject)
	assert.Equal(t, "Click here now\r\n", email.Body)
	assert.True(t, v.result.IsSpam)

	require.NoError(t, s.Abort(nil))
	assert.Empty(t, s.from)
	assert.Zero(t, s.body.Len())
}
