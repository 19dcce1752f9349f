package validate

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	reID    = regexp.MustCompile(`^[0-9]{1,18}$`)
	reScope = regexp.MustCompile(`^(all|stale)$`)
	reQ     = regexp.MustCompile(`^[\p{L}0-9 _'.\-]{1,50}$`)
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Struct runs the `validate` tags on a remote record.
func Struct(s any) error {
	return instance().Struct(s)
}

// CategoryID validates a path/query category id: positive decimal, no sign.
func CategoryID(s string) (int64, bool) {
	return positiveID(s)
}

// ProductID validates a path/query product id with the same rules.
func ProductID(s string) (int64, bool) {
	return positiveID(s)
}

func positiveID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !reID.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// OptionalCategoryID accepts an empty value as "not given".
func OptionalCategoryID(s string) (id int64, given bool, ok bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false, true
	}
	id, ok = CategoryID(s)
	return id, true, ok
}

// SyncScope validates the scope of a manual sync request; empty means "all".
func SyncScope(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "all", true
	}
	return s, reScope.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if r := []rune(s); len(r) > 50 {
		s = string(r[:50])
	}
	return s, reQ.MatchString(s)
}

func Qty(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 1
	}
	if n > 50 {
		return 50
	} // clamp to avoid abuse
	return n
}
