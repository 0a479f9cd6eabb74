package main

import (
	"context"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/league-pricing/internal/domain/discount"
)

const bloomFPR = 0.001

// screenDuplicates finds codes that occur more than once across files.
//
// Pass one feeds every normalized code into a bloom filter and keeps only the
// codes the filter has probably seen before. Pass two counts exact occurrences
// of those candidates, so memory stays proportional to the number of
// collisions rather than the number of records.
func screenDuplicates(ctx context.Context, lg *zap.Logger, files []string, estimate uint) (map[string]int, error) {
	filter := bloom.NewWithEstimates(max(estimate, 1024), bloomFPR)
	candidates := make(map[string]int)

	for _, path := range files {
		var seen uint64
		err := streamFile(ctx, path, func(r record) error {
			if r.err != nil {
				return nil
			}
			seen++
			code := discount.NormalizeCode(r.def.Code)
			if filter.TestOrAddString(code) {
				candidates[code] = 0
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "screen %s", path)
		}
		lg.Info("Screening pass complete", zap.String("file", path), zap.Uint64("records", seen))
	}
	if len(candidates) == 0 {
		return map[string]int{}, nil
	}

	for _, path := range files {
		err := streamFile(ctx, path, func(r record) error {
			if r.err != nil {
				return nil
			}
			code := discount.NormalizeCode(r.def.Code)
			if _, ok := candidates[code]; ok {
				candidates[code]++
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "count %s", path)
		}
	}

	dups := make(map[string]int)
	for code, n := range candidates {
		if n > 1 {
			dups[code] = n
		}
	}
	lg.Info("Duplicate screening complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("duplicates", len(dups)),
	)
	return dups, nil
}
