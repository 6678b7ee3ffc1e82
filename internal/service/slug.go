package service

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const fallbackSlug = "post"

// Slugify lowercases s, folds accents to ASCII and joins words with '-'.
// Characters with no ASCII form are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if len(out) > 80 {
		out = strings.TrimRight(out[:80], "-")
	}
	return out
}

type slugChecker func(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)

// uniqueSlug appends -1, -2, ... to the slug of title until taken reports false.
func uniqueSlug(ctx context.Context, title string, exclude uuid.UUID, taken slugChecker) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = fallbackSlug
	}
	candidate := base
	for i := 1; ; i++ {
		used, err := taken(ctx, candidate, exclude)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
