package email

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"cnoloyalty/internal/logger"
	"cnoloyalty/internal/metrics"
)

const (
	queueKey       = "emails"
	failedQueueKey = "emails:failed"
	maxTries       = 3

	TypeCouponIssued   = "coupon_issued"
	TypeCouponRedeemed = "coupon_redeemed"
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Config struct {
	From     string
	FromName string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

type Service struct {
	redis      *redis.Client
	cfg        Config
	retryDelay time.Duration
}

func New(cfg Config, rdb *redis.Client) *Service {
	return &Service{
		redis:      rdb,
		cfg:        cfg,
		retryDelay: 5 * time.Second,
	}
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, string(data)).Err(); err != nil {
		logger.Error("Failed to queue email", "to", job.To, "type", job.Type, "error", err)
		return err
	}

	logger.Info("Email queued", "to", job.To, "type", job.Type)
	return nil
}

// Start drains the queue until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Email worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}
	s.QueueLength(ctx)

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return
	}

	job.Tries++
	if err := s.sendNow(job); err != nil {
		logger.Error("Failed to send email", "to", job.To, "attempt", job.Tries, "error", err)

		if job.Tries < maxTries {
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
			data, _ := json.Marshal(job)
			s.redis.LPush(context.Background(), queueKey, string(data))
		} else {
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return
	}

	metrics.RecordEmail(job.Type, "success")
	logger.Info("Email sent", "to", job.To, "type", job.Type)
}

func (s *Service) sendNow(job EmailJob) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.cfg.FromName, s.cfg.From)
	message += fmt.Sprintf("To: %s\r\n", job.To)
	message += fmt.Sprintf("Subject: %s\r\n", job.Subject)
	message += "\r\n" + job.Body

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" && s.cfg.SMTPPass != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	return smtp.SendMail(addr, auth, s.cfg.From, []string{job.To}, []byte(message))
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, string(data))
	logger.Error("Email moved to failed queue", "to", job.To, "type", job.Type)
}

// QueueLength reports pending jobs and publishes the gauge.
func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	metrics.SetEmailQueueLength(length)
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func (s *Service) SendCouponIssued(ctx context.Context, to, rewardName, discount, code string, expiresAt time.Time) error {
	body := fmt.Sprintf(`Hi,

Your reward is ready: %s (%s).

Show this code at the counter:

    %s

It is valid until %s.

- C&O Coffee`, rewardName, discount, code, expiresAt.Format("Jan 2, 2006"))

	return s.enqueue(ctx, EmailJob{
		Type:    TypeCouponIssued,
		To:      to,
		Subject: "Your C&O reward: " + rewardName,
		Body:    body,
	})
}

func (s *Service) SendCouponRedeemed(ctx context.Context, to, code string, redeemedAt time.Time) error {
	body := fmt.Sprintf(`Hi,

Coupon %s was redeemed on %s. Enjoy!

- C&O Coffee`, code, redeemedAt.Format("Jan 2, 2006 at 3:04 PM"))

	return s.enqueue(ctx, EmailJob{
		Type:    TypeCouponRedeemed,
		To:      to,
		Subject: "Coupon redeemed",
		Body:    body,
	})
}
