package command

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/practicebeats/practice-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOIN CODE GENERATION
// Numeric codes people read out loud at rehearsal, so they are short and
// digits only. Uniqueness is enforced by probing the store and retrying.
// ══════════════════════════════════════════════════════════════════════════════

// codeAttempts bounds the collision retry loop.
const codeAttempts = 10

// TakenFunc reports whether a candidate code is already in use.
type TakenFunc func(ctx context.Context, code shared.JoinCode) (bool, error)

// CodeGenerator produces unique numeric join codes.
type CodeGenerator struct{}

// NewCodeGenerator creates a CodeGenerator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// UniqueEnsembleCode returns an unused 8-digit ensemble join code.
func (g *CodeGenerator) UniqueEnsembleCode(ctx context.Context, taken TakenFunc) (shared.JoinCode, error) {
	return g.unique(ctx, shared.EnsembleCodeLength, taken)
}

// UniqueTeacherCode returns an unused 6-digit teacher link code.
func (g *CodeGenerator) UniqueTeacherCode(ctx context.Context, taken TakenFunc) (shared.JoinCode, error) {
	return g.unique(ctx, shared.TeacherCodeLength, taken)
}

func (g *CodeGenerator) unique(ctx context.Context, length int, taken TakenFunc) (shared.JoinCode, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := randomDigits(length)
		if err != nil {
			return "", err
		}
		inUse, err := taken(ctx, code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}
	return "", fmt.Errorf("codes: no free %d-digit code after %d attempts", length, codeAttempts)
}

func randomDigits(length int) (shared.JoinCode, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("codes: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return shared.JoinCode(digits), nil
}
