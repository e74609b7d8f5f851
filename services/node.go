// Package services contains the HSA nodes and the loop they share for consuming a topic.
package services

import (
	"context"
	"errors"

	"github.com/mstoelzle/ros2-hsa/logging"
	"github.com/mstoelzle/ros2-hsa/ros"
	"github.com/mstoelzle/ros2-hsa/ros/cdr"
)

// Node is a running node.
type Node interface {
	// Name is the node name its parameters are keyed by.
	Name() string
	// Close stops the node and waits for its callbacks to return.
	Close(ctx context.Context) error
}

// Spin decodes every sample arriving on sub and hands it to callback until ctx is done or sub is
// closed. Samples that fail to decode and callback errors are logged and skipped so one bad message
// does not stop the node.
func Spin[T cdr.Message](ctx context.Context, sub *ros.Subscription, logger logging.Logger, callback func(context.Context, T) error) {
	for {
		sample, err := sub.Next(ctx)
		if err != nil {
			if !errors.Is(err, ros.ErrSubscriptionClosed) && ctx.Err() == nil {
				logger.Errorw("stopped receiving", "topic", sub.Topic(), "error", err)
			}
			return
		}
		msg, err := ros.DecodeSample[T](sample)
		if err != nil {
			logger.Warnw("dropping undecodable sample", "topic", sample.Topic, "error", err)
			continue
		}
		if err := callback(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorw("callback failed", "topic", sample.Topic, "error", err)
		}
	}
}
