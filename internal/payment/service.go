// Package payment implements checkout for paid courses against a mock
// gateway: orders are short-lived Redis records and captures are verified
// with an HMAC signature, the way the real gateway would sign them.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/collegecompass/api/internal/course"
)

var (
	ErrOrderNotFound     = errors.New("order not found or expired")
	ErrOrderMismatch     = errors.New("order belongs to another user")
	ErrSignatureMismatch = errors.New("payment signature mismatch")
	ErrAlreadyEnrolled   = errors.New("course already purchased")
	ErrCourseNotFree     = errors.New("course requires payment")
	ErrCourseFree        = errors.New("free course needs no order")
)

const orderTTL = 30 * time.Minute

type courseRepository interface {
	Get(ctx context.Context, id uuid.UUID) (course.Course, error)
}

// purchaseRepository enrolls atomically: the purchase record and the
// course's enrollment counter move together or not at all.
type purchaseRepository interface {
	Enroll(ctx context.Context, id, courseID uuid.UUID) error
	HasPurchase(ctx context.Context, id, courseID uuid.UUID) (bool, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Order is the pending checkout handed to the client.
type Order struct {
	ID          string    `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	CourseID    uuid.UUID `json:"course_id"`
	AmountPaise int64     `json:"amount_paise"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
}

type Service struct {
	courses   courseRepository
	purchases purchaseRepository
	redis     redisCommander
	secret    []byte
}

func NewService(courses courseRepository, purchases purchaseRepository, redisClient redisCommander, secret string) *Service {
	return &Service{courses: courses, purchases: purchases, redis: redisClient, secret: []byte(secret)}
}

// CreateOrder opens a checkout for a paid course. Amounts are in paise, the
// gateway's smallest INR unit.
func (s *Service) CreateOrder(ctx context.Context, userID, courseID uuid.UUID) (*Order, error) {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if c.Free() {
		return nil, ErrCourseFree
	}

	owned, err := s.purchases.HasPurchase(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyEnrolled
	}

	order := &Order{
		ID:          "order_" + randomHex(12),
		UserID:      userID,
		CourseID:    courseID,
		AmountPaise: c.PriceINR * 100,
		Currency:    "INR",
		CreatedAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, orderKey(order.ID), payload, orderTTL).Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// Verify checks the capture signature and enrolls the user. The order key is
// consumed so a capture cannot be replayed.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, orderID, paymentID, signature string) error {
	payload, err := s.redis.Get(ctx, orderKey(orderID)).Result()
	if err == redis.Nil {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	var order Order
	if err := json.Unmarshal([]byte(payload), &order); err != nil {
		return err
	}
	if order.UserID != userID {
		return ErrOrderMismatch
	}
	if !hmac.Equal([]byte(signature), []byte(s.Sign(orderID, paymentID))) {
		return ErrSignatureMismatch
	}

	if err := s.purchases.Enroll(ctx, userID, order.CourseID); err != nil {
		return err
	}
	return s.redis.Del(ctx, orderKey(orderID)).Err()
}

// EnrollFree enrolls the user directly into a zero-price course.
func (s *Service) EnrollFree(ctx context.Context, userID, courseID uuid.UUID) error {
	c, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if !c.Free() {
		return ErrCourseNotFree
	}

	owned, err := s.purchases.HasPurchase(ctx, userID, courseID)
	if err != nil {
		return err
	}
	if owned {
		return ErrAlreadyEnrolled
	}

	return s.purchases.Enroll(ctx, userID, courseID)
}

// Sign produces the capture signature for an order and payment pair.
func (s *Service) Sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func orderKey(id string) string { return "order:" + id }

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
