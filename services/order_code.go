package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yeremiapane/cafe-app/utils"
)

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewOrderID returns ORD-<unix ms>-<6 hex>.
func NewOrderID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// CodeGenerator hands out short, human-facing order numbers.
type CodeGenerator struct {
	Length   int
	Attempts int
	random   func(n int) (string, error)
}

func NewCodeGenerator(length, attempts int) *CodeGenerator {
	if length <= 0 {
		length = 5
	}
	if attempts <= 0 {
		attempts = 10
	}
	return &CodeGenerator{Length: length, Attempts: attempts, random: randomCode}
}

// Generate draws codes until inUse reports a free one. After Attempts
// collisions it falls back to a timestamp-suffixed code.
func (g *CodeGenerator) Generate(ctx context.Context, now time.Time, inUse func(code string) (bool, error)) (string, error) {
	var last string
	for i := 0; i < g.Attempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code, err := g.random(g.Length)
		if err != nil {
			return "", err
		}
		taken, err := inUse(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		last = code
	}

	utils.InfoLogger.Warnf("order number space busy after %d attempts, using timestamp suffix", g.Attempts)
	if last == "" {
		last = strings.Repeat("X", g.Length)
	}
	return last + "-" + strings.ToUpper(strconv.FormatInt(now.UnixNano(), 36)), nil
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
