package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Document is one independently fetched report.
type Document struct {
	Name   string
	Markup []byte
}

// ExtractAll extracts independent documents concurrently, at most limit at
// a time. Results keep the input order; a failed document leaves a nil
// entry and its error is joined into the returned error. Records are
// stamped with the document name as their source.
func (e *Extractor) ExtractAll(ctx context.Context, docs []Document, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = 1
	}

	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := e.ExtractReader(bytes.NewReader(doc.Markup))
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", doc.Name, err)
				return nil
			}
			result.Source = doc.Name
			for _, record := range result.Records {
				record.Source = doc.Name
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
