package service

import (
	"context"
	"fmt"
	"time"

	"github.com/serhatipek/choreline/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBulkBatchSize = 10
	defaultBulkPause     = time.Second
)

// SendBulk fans the requests out in fixed-size batches. Requests inside a
// batch run concurrently and every one settles before the next batch starts;
// a fixed pause between batches bounds instantaneous provider load and is
// skipped after the final batch. The returned slice matches the input's
// length and order, and one request's panic or error never aborts siblings.
func (s *Service) SendBulk(ctx context.Context, notifications []domain.Notification) []domain.DeliveryResult {
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]domain.DeliveryResult, len(notifications))

	for start := 0; start < len(notifications); start += s.bulkBatchSize {
		end := start + s.bulkBatchSize
		if end > len(notifications) {
			end = len(notifications)
		}

		g := new(errgroup.Group)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error("bulk request panicked",
							zap.Int("index", i),
							zap.Any("panic", r),
						)
						results[i] = domain.DeliveryResult{
							Success:     false,
							Error:       fmt.Sprint(r),
							DeliveredAt: s.now(),
						}
					}
				}()

				result, err := s.Submit(ctx, notifications[i])
				if err != nil {
					results[i] = domain.DeliveryResult{
						Success:     false,
						Error:       err.Error(),
						DeliveredAt: s.now(),
					}
					return nil
				}
				results[i] = *result
				return nil
			})
		}
		_ = g.Wait()

		if end < len(notifications) {
			if err := s.sleep(ctx, s.bulkPause); err != nil {
				// Cancelled mid-pause: keep going, the per-request path
				// fails fast on the dead context.
				continue
			}
		}
	}

	return results
}
