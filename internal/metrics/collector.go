package metrics

import (
	"context"
	"log/slog"
	"time"

	"Blogwebserver/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// CommentQueueCollector reports comment counts per status on each scrape.
type CommentQueueCollector struct {
	stats  func(context.Context) (domain.CommentStats, error)
	logger *slog.Logger

	comments *prometheus.Desc
}

func NewCommentQueueCollector(stats func(context.Context) (domain.CommentStats, error), logger *slog.Logger) *CommentQueueCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentQueueCollector{
		stats:  stats,
		logger: logger,
		comments: prometheus.NewDesc(
			"blog_comments",
			"Number of stored comments by moderation status",
			[]string{"status"}, nil,
		),
	}
}

func (c *CommentQueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.comments
}

func (c *CommentQueueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	st, err := c.stats(ctx)
	if err != nil {
		c.logger.Warn("comment stats for metrics failed", "err", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.comments, prometheus.GaugeValue, float64(st.Pending), string(domain.CommentPending))
	ch <- prometheus.MustNewConstMetric(c.comments, prometheus.GaugeValue, float64(st.Approved), string(domain.CommentApproved))
	ch <- prometheus.MustNewConstMetric(c.comments, prometheus.GaugeValue, float64(st.Rejected), string(domain.CommentRejected))
}
