package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/adapters/filter"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailFilter creates the mail front-end named by server.filter_type.
// The type "none" yields nil.
func (f *FilterFactory) CreateEmailFilter(analyzer filter.Analyzer) (core.EmailFilter, error) {
	server, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	opts := filter.Options{
		ListenAddress: server.ListenAddress,
		BlockSpam:     server.BlockSpam,
		Headers: filter.HeaderNames{
			Spam:   server.SpamHeader,
			Score:  server.ScoreHeader,
			Reason: server.ReasonHeader,
		},
		SubjectPrefix: server.SubjectPrefix,
		ModifySubject: server.ModifySubject,
		Timeout:       server.Timeout,
	}

	switch server.FilterType {
	case "none", "":
		return nil, nil
	case "postfix":
		return filter.NewPostfixFilter(analyzer, f.logger, opts, server.PostfixReinjectAddress()), nil
	case "milter":
		return filter.NewMilterFilter(analyzer, f.logger, opts), nil
	case "cli":
		return filter.NewCliFilter(analyzer, f.logger, nil, f.cfg.GetBool("cli.verbose")), nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", server.FilterType)
	}
}
