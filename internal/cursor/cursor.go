// Package cursor stores a student's question position for an exam in a
// signed token, so navigation survives page reloads without server state.
package cursor

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pavelanni/academy/internal/exam"
)

// DefaultTTL bounds how long a cursor is honoured.
const DefaultTTL = 12 * time.Hour

// ErrInvalid is returned for tokens that fail verification or belong to
// another user or exam.
var ErrInvalid = errors.New("invalid cursor")

type claims struct {
	ExamID    int64 `json:"exam"`
	AttemptID int64 `json:"attempt"`
	Index     int   `json:"idx"`
	jwt.RegisteredClaims
}

// Codec signs and verifies cursors with HMAC-SHA256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec returns a codec using secret. A non-positive ttl uses DefaultTTL.
func NewCodec(secret []byte, ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: secret, ttl: ttl, now: time.Now}
}

// CookieName is the per-exam cookie the handler stores the token in.
func CookieName(examID int64) string {
	return "exam_cursor_" + strconv.FormatInt(examID, 10)
}

// TTL returns the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode signs cur for the given user and exam.
func (c *Codec) Encode(userID, examID int64, cur exam.Cursor) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ExamID:    examID,
		AttemptID: cur.AttemptID,
		Index:     cur.Index,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	s, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign cursor: %w", err)
	}
	return s, nil
}

// Decode verifies token and returns the cursor it carries.
func (c *Codec) Decode(token string, userID, examID int64) (exam.Cursor, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(strconv.FormatInt(userID, 10)),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return exam.Cursor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cl.ExamID != examID {
		return exam.Cursor{}, fmt.Errorf("%w: exam mismatch", ErrInvalid)
	}
	return exam.Cursor{AttemptID: cl.AttemptID, Index: cl.Index}, nil
}
