package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// uploadOutcome keeps stored URLs in the order the files were given
type uploadOutcome struct {
	Refs     []string
	Failures []AttachmentFailure
}

// uploadAttachments stores every file, tolerating per-file failures.
// A failed file is reported and skipped; the others are kept.
func uploadAttachments(ctx context.Context, store AttachmentStore, files []AttachmentFile, concurrency int, logger *zap.Logger) (uploadOutcome, error) {
	if len(files) == 0 {
		return uploadOutcome{}, nil
	}
	if store == nil {
		return uploadOutcome{}, shared.ErrUpstreamFailure.WithDetail("reason", "attachment store not configured")
	}
	if concurrency < 1 {
		concurrency = 1
	}

	refs := make([]string, len(files))
	errs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, f := range files {
		g.Go(func() error {
			url, err := store.Upload(ctx, f)
			refs[i], errs[i] = url, err
			return nil
		})
	}
	_ = g.Wait()

	var out uploadOutcome
	for i, f := range files {
		if errs[i] != nil {
			logger.Warn("Attachment upload failed",
				zap.String("file", f.Name),
				zap.Error(errs[i]))
			out.Failures = append(out.Failures, AttachmentFailure{Name: f.Name, Error: errs[i].Error()})
			continue
		}
		out.Refs = append(out.Refs, refs[i])
	}
	return out, nil
}

// collectAttachments merges caller-supplied refs with newly uploaded files.
// If files were given but none could be stored and nothing else remains, the store is reported as failing.
func collectAttachments(ctx context.Context, store AttachmentStore, refs []string, files []AttachmentFile, concurrency int, logger *zap.Logger) ([]string, []AttachmentFailure, error) {
	outcome, err := uploadAttachments(ctx, store, files, concurrency, logger)
	if err != nil {
		return nil, nil, err
	}
	all := append(append([]string{}, refs...), outcome.Refs...)
	if len(files) > 0 && len(outcome.Refs) == 0 && len(refs) == 0 {
		return nil, outcome.Failures, shared.ErrUpstreamFailure.
			WithDetail("reason", "no attachment could be stored").
			WithDetail("failed_attachments", outcome.Failures)
	}
	return all, outcome.Failures, nil
}
